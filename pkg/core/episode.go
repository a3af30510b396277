// pkg/core/episode.go
package core

import "time"

// Episode describes one run of the simulation from reset to outcome.
type Episode struct {
	ID         uint
	Name       string
	StartTime  time.Time
	Seed       uint64
	DeltaTime  float64
	MaxTime    float64
	Width      float64
	Height     float64
	Callsigns  map[Color][]string
	Options    map[string]any
	RunnerName string
}

// Outcome is the terminal classification of an episode.
type Outcome struct {
	EpisodeID uint
	Winner    Winner
	Elapsed   float64
	Ticks     uint
	Remaining RemainCount
	Truncated bool
	Reward    [2]float64 // indexed by Color
	EndTime   time.Time
}

// UploadMetadata describes an exported recording for the replay server.
type UploadMetadata struct {
	EpisodeName  string
	Winner       string
	Duration     float64
	Tag          string
	AircraftRed  int
	AircraftBlue int
}

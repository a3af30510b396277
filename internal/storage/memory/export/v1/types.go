// Package v1 contains the v1 export format for recorded episodes.
// This format is what the replay frontend loads.
package v1

// FormatVersion is written into every export.
const FormatVersion = "1"

// Export is the root JSON structure for v1 format
type Export struct {
	Version     string    `json:"version"`
	EpisodeName string    `json:"episodeName"`
	Runner      string    `json:"runner,omitempty"`
	Tags        string    `json:"tags"`
	StartTime   string    `json:"startTime"`
	Seed        uint64    `json:"seed"`
	DeltaTime   float64   `json:"deltaTime"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Origin      []float64 `json:"origin"` // [lon, lat] of the game origin
	EndFrame    int       `json:"endFrame"`
	Winner      string    `json:"winner"`
	Elapsed     float64   `json:"elapsed"`
	Truncated   bool      `json:"truncated"`
	Times       []Time    `json:"times"`
	Entities    []Entity  `json:"entities"`
	Events      [][]any   `json:"events"`
}

// Time maps a recorded frame to simulated time
type Time struct {
	FrameNum int     `json:"frameNum"`
	Time     float64 `json:"time"`
}

// Entity represents an aircraft, missile, base or bullseye
type Entity struct {
	ID            uint16  `json:"id"`
	Name          string  `json:"name"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	StartFrameNum int     `json:"startFrameNum"`
	Positions     [][]any `json:"positions"`
	FramesFired   [][]any `json:"framesFired"`
}

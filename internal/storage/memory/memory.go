// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/internal/storage"
	v1 "github.com/skyduel/dogfight/internal/storage/memory/export/v1"
	"github.com/skyduel/dogfight/pkg/core"
)

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Uploadable = (*Backend)(nil)
)

// Backend stores episode data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	tag    string
	origin [2]float64
	proj   geo.Projection

	episode *core.Episode
	outcome *core.Outcome

	entities map[string]*v1.EntityRecord // keyed by entity name
	times    []v1.Time

	killEvents      []core.KillEvent
	destroyedEvents []core.DestroyedEvent

	idCounter      uint16
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend. lon and lat anchor the game origin for
// the exported WGS84 positions.
func New(cfg config.MemoryConfig, tag string, lon, lat float64) *Backend {
	return &Backend{
		cfg:      cfg,
		tag:      tag,
		origin:   [2]float64{lon, lat},
		proj:     geo.NewProjection(lon, lat),
		entities: make(map[string]*v1.EntityRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartEpisode begins recording a new episode
func (b *Backend) StartEpisode(ep *core.Episode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.episode = ep
	b.outcome = nil

	// Reset all collections
	b.entities = make(map[string]*v1.EntityRecord)
	b.times = nil
	b.killEvents = nil
	b.destroyedEvents = nil
	b.idCounter = 0
	b.lastExportPath = ""

	return nil
}

// EndEpisode finalizes and exports the episode data
func (b *Backend) EndEpisode(out *core.Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.episode == nil {
		return storage.ErrNotStarted
	}
	b.outcome = out
	return b.exportJSON()
}

// AddEntity registers an entity. Registering a name twice keeps the first ID.
func (b *Backend) AddEntity(info *core.EntityInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.episode == nil {
		return storage.ErrNotStarted
	}
	if _, ok := b.entities[info.Name]; ok {
		return nil
	}
	b.entities[info.Name] = &v1.EntityRecord{
		ID:   b.idCounter,
		Info: *info,
	}
	b.idCounter++
	return nil
}

// RecordFrame appends each state to its entity. States of unregistered
// entities are ignored.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.episode == nil {
		return storage.ErrNotStarted
	}
	b.times = append(b.times, v1.Time{FrameNum: int(f.Tick), Time: f.Time})
	for _, s := range f.States {
		if record, ok := b.entities[s.Name]; ok {
			record.States = append(record.States, v1.TickState{Tick: f.Tick, State: s})
		}
	}
	return nil
}

// RecordFiredEvent attaches the launch to the shooter
func (b *Backend) RecordFiredEvent(e *core.FiredEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.episode == nil {
		return storage.ErrNotStarted
	}
	if record, ok := b.entities[e.Shooter]; ok {
		record.Fired = append(record.Fired, *e)
	}
	return nil
}

// RecordKillEvent records a kill
func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.episode == nil {
		return storage.ErrNotStarted
	}
	b.killEvents = append(b.killEvents, *e)
	return nil
}

// RecordDestroyedEvent records a destruction
func (b *Backend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.episode == nil {
		return storage.ErrNotStarted
	}
	b.destroyedEvents = append(b.destroyedEvents, *e)
	return nil
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata about the last exported episode
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var meta core.UploadMetadata
	if b.episode == nil {
		return meta
	}
	meta.EpisodeName = b.episode.Name
	meta.Tag = b.tag
	if b.outcome != nil {
		meta.Winner = string(b.outcome.Winner)
		meta.Duration = b.outcome.Elapsed
	}
	for _, record := range b.entities {
		if record.Info.Kind != core.KindAircraft {
			continue
		}
		switch record.Info.Color {
		case core.Red:
			meta.AircraftRed++
		case core.Blue:
			meta.AircraftBlue++
		}
	}
	return meta
}

func (b *Backend) episodeData() *v1.EpisodeData {
	return &v1.EpisodeData{
		Episode:         b.episode,
		Outcome:         b.outcome,
		Tag:             b.tag,
		Projection:      b.proj,
		Origin:          b.origin,
		Entities:        b.entities,
		Times:           b.times,
		KillEvents:      b.killEvents,
		DestroyedEvents: b.destroyedEvents,
	}
}

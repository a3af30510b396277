// internal/storage/storage.go
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/skyduel/dogfight/pkg/core"
)

// ErrNotStarted is returned when a record arrives before StartEpisode.
var ErrNotStarted = errors.New("no episode started")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Episode management
	StartEpisode(ep *core.Episode) error
	EndEpisode(out *core.Outcome) error

	// Entity registration, called the first time an entity shows up in a frame
	AddEntity(info *core.EntityInfo) error

	// State recording
	RecordFrame(f *core.Frame) error

	// Event recording
	RecordFiredEvent(e *core.FiredEvent) error
	RecordKillEvent(e *core.KillEvent) error
	RecordDestroyedEvent(e *core.DestroyedEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// RecordEvent routes ev to the matching Record method of b.
func RecordEvent(b Backend, ev core.Event) error {
	switch e := ev.(type) {
	case core.FiredEvent:
		return b.RecordFiredEvent(&e)
	case core.KillEvent:
		return b.RecordKillEvent(&e)
	case core.DestroyedEvent:
		return b.RecordDestroyedEvent(&e)
	case *core.FiredEvent:
		return b.RecordFiredEvent(e)
	case *core.KillEvent:
		return b.RecordKillEvent(e)
	case *core.DestroyedEvent:
		return b.RecordDestroyedEvent(e)
	default:
		return fmt.Errorf("unsupported event type %T", ev)
	}
}

// Multi fans every call out to several backends. Every backend is
// called; their errors are joined.
type Multi []Backend

var _ Backend = Multi(nil)

func (m Multi) each(fn func(Backend) error) error {
	var errs []error
	for _, b := range m {
		if err := fn(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Init() error  { return m.each(Backend.Init) }
func (m Multi) Close() error { return m.each(Backend.Close) }

func (m Multi) StartEpisode(ep *core.Episode) error {
	return m.each(func(b Backend) error { return b.StartEpisode(ep) })
}

func (m Multi) EndEpisode(out *core.Outcome) error {
	return m.each(func(b Backend) error { return b.EndEpisode(out) })
}

func (m Multi) AddEntity(info *core.EntityInfo) error {
	return m.each(func(b Backend) error { return b.AddEntity(info) })
}

func (m Multi) RecordFrame(f *core.Frame) error {
	return m.each(func(b Backend) error { return b.RecordFrame(f) })
}

func (m Multi) RecordFiredEvent(e *core.FiredEvent) error {
	return m.each(func(b Backend) error { return b.RecordFiredEvent(e) })
}

func (m Multi) RecordKillEvent(e *core.KillEvent) error {
	return m.each(func(b Backend) error { return b.RecordKillEvent(e) })
}

func (m Multi) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	return m.each(func(b Backend) error { return b.RecordDestroyedEvent(e) })
}

// Uploadables returns the members of b that produce upload files.
func Uploadables(b Backend) []Uploadable {
	var out []Uploadable
	if m, ok := b.(Multi); ok {
		for _, sub := range m {
			out = append(out, Uploadables(sub)...)
		}
		return out
	}
	if u, ok := b.(Uploadable); ok {
		out = append(out, u)
	}
	return out
}

// QueueReporter is implemented by backends that buffer writes.
type QueueReporter interface {
	QueueLength() int
}

// WriteDurationReporter is implemented by backends that write in batches
// and time each batch.
type WriteDurationReporter interface {
	LastWriteDuration() time.Duration
}

// QueueLength sums the buffered records of b and, for a Multi, its members.
func QueueLength(b Backend) int {
	if m, ok := b.(Multi); ok {
		n := 0
		for _, sub := range m {
			n += QueueLength(sub)
		}
		return n
	}
	if q, ok := b.(QueueReporter); ok {
		return q.QueueLength()
	}
	return 0
}

// LastWriteDuration returns the slowest last batch among b's members, 0
// when none of them report one.
func LastWriteDuration(b Backend) time.Duration {
	if m, ok := b.(Multi); ok {
		var d time.Duration
		for _, sub := range m {
			d = max(d, LastWriteDuration(sub))
		}
		return d
	}
	if w, ok := b.(WriteDurationReporter); ok {
		return w.LastWriteDuration()
	}
	return 0
}

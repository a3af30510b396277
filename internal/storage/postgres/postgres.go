// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skyduel/dogfight/internal/cache"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/internal/model/convert"
	"github.com/skyduel/dogfight/internal/queue"
	"github.com/skyduel/dogfight/internal/storage"
	"github.com/skyduel/dogfight/pkg/core"
	"gorm.io/gorm"
)

const defaultFlushInterval = 2 * time.Second

var _ storage.Backend = (*Backend)(nil)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB is used as is when set; otherwise Init connects with DBConfig.
	DB       *gorm.DB
	DBConfig config.DBConfig
	Logger   *slog.Logger

	// Origin anchors the game plane for stored geometries.
	OriginLon float64
	OriginLat float64
	Tag       string

	// FlushInterval between background writes; zero uses two seconds.
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Entities        *queue.Queue[model.Entity]
	EntityStates    *queue.Queue[model.EntityState]
	FiredEvents     *queue.Queue[model.FiredEvent]
	KillEvents      *queue.Queue[model.KillEvent]
	DestroyedEvents *queue.Queue[model.DestroyedEvent]
}

func newQueues() *queues {
	return &queues{
		Entities:        queue.New[model.Entity](),
		EntityStates:    queue.New[model.EntityState](),
		FiredEvents:     queue.New[model.FiredEvent](),
		KillEvents:      queue.New[model.KillEvent](),
		DestroyedEvents: queue.New[model.DestroyedEvent](),
	}
}

func (q *queues) len() int {
	return q.Entities.Len() + q.EntityStates.Len() + q.FiredEvents.Len() +
		q.KillEvents.Len() + q.DestroyedEvents.Len()
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	proj     geo.Projection
	log      *slog.Logger
	queues   *queues
	entities *cache.EntityCache

	episodeID atomic.Uint64

	// writeMu serializes every statement against the DB
	writeMu      sync.Mutex
	lastWriteDur atomic.Int64

	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:     deps,
		proj:     geo.NewProjection(deps.OriginLon, deps.OriginLat),
		log:      deps.Logger.With("component", "storage", "backend", "gorm"),
		queues:   newQueues(),
		entities: cache.NewEntityCache(),
	}
}

// DB returns the connection in use. Nil before Init when none was injected.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres(b.deps.DBConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.writeMu.Lock()
	err := database.Migrate(b.deps.DB)
	b.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.log.Info("database ready", "dialect", b.deps.DB.Name())

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartEpisode writes the episode row synchronously and assigns its ID to ep.
func (b *Backend) StartEpisode(ep *core.Episode) error {
	if b.deps.DB == nil {
		return errors.New("database not initialized")
	}
	if err := b.Flush(); err != nil {
		b.log.Warn("previous episode not fully written", "error", err)
	}

	row := convert.CoreToEpisode(*ep, b.deps.Tag, b.deps.OriginLon, b.deps.OriginLat)
	b.writeMu.Lock()
	err := b.deps.DB.Create(&row).Error
	b.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to insert new episode: %w", err)
	}

	ep.ID = row.ID
	b.entities.Reset()
	b.episodeID.Store(uint64(row.ID))
	return nil
}

// EndEpisode writes everything queued for the episode, then its outcome.
func (b *Backend) EndEpisode(out *core.Outcome) error {
	id := b.currentEpisode()
	if id == 0 {
		return storage.ErrNotStarted
	}
	if err := b.Flush(); err != nil {
		return err
	}

	row := convert.CoreToOutcome(*out)
	row.EpisodeID = id
	b.writeMu.Lock()
	err := b.deps.DB.Create(&row).Error
	b.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	out.EpisodeID = id
	b.episodeID.Store(0)
	return nil
}

func (b *Backend) currentEpisode() uint {
	return uint(b.episodeID.Load())
}

func (b *Backend) objectIDs(name string) (uint16, bool) {
	return b.entities.Get(name)
}

// AddEntity assigns an object ID and queues the entity row.
func (b *Backend) AddEntity(info *core.EntityInfo) error {
	id := b.currentEpisode()
	if id == 0 {
		return storage.ErrNotStarted
	}
	objectID, created := b.entities.Add(*info)
	if created {
		b.queues.Entities.Push(convert.CoreToEntity(*info, id, objectID))
	}
	return nil
}

// RecordFrame converts and queues one state row per registered entity.
func (b *Backend) RecordFrame(f *core.Frame) error {
	id := b.currentEpisode()
	if id == 0 {
		return storage.ErrNotStarted
	}
	rows := make([]model.EntityState, 0, len(f.States))
	for _, s := range f.States {
		objectID, ok := b.entities.Get(s.Name)
		if !ok {
			continue
		}
		row := convert.CoreToEntityState(s, f.Tick, f.Time, objectID, b.proj)
		row.EpisodeID = id
		rows = append(rows, row)
	}
	b.queues.EntityStates.Push(rows...)
	return nil
}

// RecordFiredEvent converts and queues a launch.
func (b *Backend) RecordFiredEvent(e *core.FiredEvent) error {
	id := b.currentEpisode()
	if id == 0 {
		return storage.ErrNotStarted
	}
	row := convert.CoreToFiredEvent(*e, b.objectIDs, b.proj)
	row.EpisodeID = id
	b.queues.FiredEvents.Push(row)
	return nil
}

// RecordKillEvent converts and queues a kill.
func (b *Backend) RecordKillEvent(e *core.KillEvent) error {
	id := b.currentEpisode()
	if id == 0 {
		return storage.ErrNotStarted
	}
	row := convert.CoreToKillEvent(*e, b.objectIDs, b.proj)
	row.EpisodeID = id
	b.queues.KillEvents.Push(row)
	return nil
}

// RecordDestroyedEvent converts and queues a destruction.
func (b *Backend) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	id := b.currentEpisode()
	if id == 0 {
		return storage.ErrNotStarted
	}
	row := convert.CoreToDestroyedEvent(*e, b.objectIDs, b.proj)
	row.EpisodeID = id
	b.queues.DestroyedEvents.Push(row)
	return nil
}

// QueueLength is the number of rows waiting to be written.
func (b *Backend) QueueLength() int {
	return b.queues.len()
}

// LastWriteDuration is how long the most recent flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteDur.Load())
}

// Flush writes every queue to the database. Rows that fail stay queued.
func (b *Backend) Flush() error {
	if b.deps.DB == nil {
		return nil
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	db := b.deps.DB
	// Entities first so states and events never reference a missing row
	errs := []error{
		writeQueue(db, b.queues.Entities, "entities", b.log),
		writeQueue(db, b.queues.EntityStates, "entity states", b.log),
		writeQueue(db, b.queues.FiredEvents, "fired events", b.log),
		writeQueue(db, b.queues.KillEvents, "kill events", b.log),
		writeQueue(db, b.queues.DestroyedEvents, "destroyed events", b.log),
	}
	b.lastWriteDur.Store(int64(time.Since(start)))
	return errors.Join(errs...)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the front for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(0)
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("error creating rows", "table", name, "count", len(items), "error", err)
		q.Requeue(items...)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// writeLoop periodically drains the queues into the DB.
func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}

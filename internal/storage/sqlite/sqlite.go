// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the only SQLite-specific concerns are
// creating the in-memory DB and the periodic and end-of-episode disk dumps.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/storage"
	"github.com/skyduel/dogfight/internal/storage/postgres"
	"github.com/skyduel/dogfight/pkg/core"
)

var _ storage.Backend = (*Backend)(nil)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*postgres.Backend
	cfg      config.SQLiteConfig
	dumpPath string
	log      *slog.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend. name selects a private in-memory
// database and the dump file <OutputDir>/<name>.db.
func New(name string, cfg config.SQLiteConfig, deps postgres.Dependencies) (*Backend, error) {
	db, err := database.OpenSQLite(database.MemoryDSN(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	// one connection keeps the in-memory database alive and serializes access
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	deps.DB = db
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	b := &Backend{
		Backend: postgres.New(deps),
		cfg:     cfg,
		log:     deps.Logger.With("component", "storage", "backend", "sqlite"),
	}
	if cfg.OutputDir != "" {
		b.dumpPath = filepath.Join(cfg.OutputDir, name+".db")
	}
	return b, nil
}

// DumpPath is where the database is written, empty when dumps are disabled.
func (b *Backend) DumpPath() string {
	return b.dumpPath
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	b.stopChan = make(chan struct{})
	if b.dumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	err := b.Dump()
	if sqlDB, dbErr := b.DB().DB(); dbErr == nil {
		_ = sqlDB.Close()
	}
	return err
}

// EndEpisode writes the outcome and dumps the database so every finished
// episode is on disk.
func (b *Backend) EndEpisode(out *core.Outcome) error {
	if err := b.Backend.EndEpisode(out); err != nil {
		return err
	}
	return b.Dump()
}

// Dump flushes the write queues and vacuums the database to disk.
func (b *Backend) Dump() error {
	if b.dumpPath == "" {
		return nil
	}
	if err := b.Flush(); err != nil {
		b.log.Warn("dumping with unwritten rows", "error", err)
	}
	start := time.Now()
	if err := database.DumpSQLite(b.DB(), b.dumpPath); err != nil {
		return err
	}
	b.log.Debug("dumped to disk", "path", b.dumpPath, "duration", time.Since(start))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("error dumping to disk", "error", err)
			}
		}
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/skyduel/dogfight/internal/api"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/logging"
	"github.com/skyduel/dogfight/internal/storage"
	"github.com/skyduel/dogfight/internal/storage/memory"
	pgstorage "github.com/skyduel/dogfight/internal/storage/postgres"
	sqlitestorage "github.com/skyduel/dogfight/internal/storage/sqlite"
	wsstorage "github.com/skyduel/dogfight/internal/storage/websocket"
	"github.com/skyduel/dogfight/pkg/core"
)

// backendOptions carries what every backend of one runner shares.
type backendOptions struct {
	Runner    string
	Tag       string
	OriginLon float64
	OriginLat float64
	DB        *gorm.DB // postgres connection shared by all runners, may be nil
	Logger    *slog.Logger
}

// createStorageBackend builds the recording backend for one runner. A
// storage type listing several backends yields a storage.Multi.
func createStorageBackend(cfg config.StorageConfig, opts backendOptions) (storage.Backend, error) {
	types := cfg.Types()
	if len(types) == 0 {
		return nil, nil
	}

	var backends storage.Multi
	for _, t := range types {
		b, err := newBackend(t, cfg, opts)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return backends, nil
}

func newBackend(kind string, cfg config.StorageConfig, opts backendOptions) (storage.Backend, error) {
	log := opts.Logger.With("runner", opts.Runner)
	switch kind {
	case "memory":
		log.Info("Memory storage backend initialized", "outputDir", cfg.Memory.OutputDir)
		return memory.New(cfg.Memory, opts.Tag, opts.OriginLon, opts.OriginLat), nil

	case "sqlite":
		name := logging.ArtifactPath("", "", SessionStartTime, AppName, opts.Runner)
		backend, err := sqlitestorage.New(name, cfg.SQLite, pgstorage.Dependencies{
			Logger:    log,
			OriginLon: opts.OriginLon,
			OriginLat: opts.OriginLat,
			Tag:       opts.Tag,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend initialized", "path", backend.DumpPath())
		return backend, nil

	case "postgres":
		log.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			DB:        opts.DB,
			DBConfig:  config.GetDBConfig(),
			Logger:    log,
			OriginLon: opts.OriginLon,
			OriginLat: opts.OriginLat,
			Tag:       opts.Tag,
		}), nil

	case "websocket":
		wsCfg := cfg.Websocket
		if wsCfg.URL == "" {
			wsCfg.URL = httpToWS(viper.GetString("api.serverUrl")) + "/api/v1/stream"
		}
		if wsCfg.Secret == "" {
			wsCfg.Secret = viper.GetString("api.apiKey")
		}
		log.Info("WebSocket storage backend initialized", "url", wsCfg.URL)
		return wsstorage.New(wsCfg, opts.Tag, log), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", kind)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// uploadingBackend sends every exported recording to the replay server
// once the episode has ended.
type uploadingBackend struct {
	storage.Backend
	client  *api.Client
	log     *slog.Logger
	timeout time.Duration
}

func newUploadingBackend(b storage.Backend, client *api.Client, log *slog.Logger) *uploadingBackend {
	return &uploadingBackend{Backend: b, client: client, log: log, timeout: time.Minute}
}

func (u *uploadingBackend) EndEpisode(out *core.Outcome) error {
	if err := u.Backend.EndEpisode(out); err != nil {
		return err
	}
	for _, up := range storage.Uploadables(u.Backend) {
		path := up.GetExportedFilePath()
		if path == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), u.timeout)
		err := u.client.Upload(ctx, path, up.GetExportMetadata())
		cancel()
		if err != nil {
			// the recording stays on disk
			u.log.Error("Failed to upload recording", "path", path, "error", err)
			continue
		}
		u.log.Info("Uploaded recording", "path", path)
	}
	return nil
}

func (u *uploadingBackend) QueueLength() int {
	return storage.QueueLength(u.Backend)
}

func (u *uploadingBackend) LastWriteDuration() time.Duration {
	return storage.LastWriteDuration(u.Backend)
}

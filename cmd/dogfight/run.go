package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/skyduel/dogfight/internal/api"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/episode"
	"github.com/skyduel/dogfight/internal/influx"
	"github.com/skyduel/dogfight/internal/logging"
	"github.com/skyduel/dogfight/internal/monitor"
	"github.com/skyduel/dogfight/internal/policy"
	"github.com/skyduel/dogfight/pkg/core"

	"github.com/spf13/viper"
)

// split divides total episodes over n runners; the first runners take
// the remainder. It returns the first index and count per runner.
func split(total, n int) [][2]int {
	out := make([][2]int, n)
	base, rem := total/n, total%n
	first := 0
	for i := range out {
		count := base
		if i < rem {
			count++
		}
		out[i] = [2]int{first, count}
		first += count
	}
	return out
}

func newPolicies(names [2]string) ([2]policy.Policy, error) {
	var out [2]policy.Policy
	for i, name := range names {
		p, err := policy.New(name)
		if err != nil {
			return out, err
		}
		out[i] = p
	}
	return out, nil
}

func runEpisodes(ctx context.Context) error {
	rc := config.GetRunnerConfig()
	storageCfg := config.GetStorageConfig()
	lon, lat := config.GetMapOrigin()

	opts, err := loadOptions()
	if err != nil {
		return fmt.Errorf("invalid battle options: %w", err)
	}

	// postgres connection shared by every runner
	var db *gorm.DB
	if slices.Contains(storageCfg.Types(), "postgres") {
		dbManager := database.NewManager(ZLogger.With().Str("component", "database").Logger())
		if err := dbManager.Connect(config.GetDBConfig()); err != nil {
			return fmt.Errorf("error connecting to database: %w", err)
		}
		defer func() { _ = dbManager.Close() }()
		if err := dbManager.Setup(); err != nil {
			return err
		}
		db = dbManager.DB
		if dbManager.ShouldSaveLocal {
			dbManager.SqliteFilePath = logging.ArtifactPath(storageCfg.SQLite.OutputDir, ".db",
				SessionStartTime, AppName, "postgres_fallback")
			defer func() {
				if err := dbManager.DumpMemoryToDisk(); err != nil {
					Logger.Error("Failed to dump fallback database", "path", dbManager.SqliteFilePath, "error", err)
				} else {
					Logger.Info("Postgres was unreachable, recordings saved locally", "path", dbManager.SqliteFilePath)
				}
			}()
		}
	}

	influxManager := influx.NewManager(
		ZLogger.With().Str("component", "influx").Logger(),
		config.GetInfluxConfig(),
		logging.ArtifactPath(runnerLogDir(), ".lp.gz", SessionStartTime, "influx"),
	)
	var metrics episode.MetricsWriter
	if err := influxManager.Connect(ctx); err != nil {
		if !errors.Is(err, influx.ErrDisabled) {
			Logger.Warn("InfluxDB unavailable, outcomes are not exported", "error", err)
		}
	} else {
		metrics = influxManager
	}
	defer func() { _ = influxManager.Close() }()

	var client *api.Client
	if rc.Upload {
		if checkServerStatus(ctx) {
			client = api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
		} else {
			Logger.Warn("Uploads disabled for this run")
		}
	}

	stats := episode.NewStats()
	runners := make([]*episode.Runner, 0, rc.Parallel)
	defer func() {
		for _, r := range runners {
			if b := r.Backend(); b != nil {
				if err := b.Close(); err != nil {
					Logger.Error("Failed to close storage backend", "runner", r.Name(), "error", err)
				}
			}
			r.Close()
		}
	}()

	for i := 0; i < rc.Parallel; i++ {
		name := fmt.Sprintf("runner_%d", i)
		backend, err := createStorageBackend(storageCfg, backendOptions{
			Runner:    name,
			Tag:       rc.Tag,
			OriginLon: lon,
			OriginLat: lat,
			DB:        db,
			Logger:    Logger,
		})
		if err != nil {
			return err
		}
		if backend != nil {
			if err := backend.Init(); err != nil {
				_ = backend.Close()
				return fmt.Errorf("failed to initialize storage backend for %s: %w", name, err)
			}
			if client != nil {
				backend = newUploadingBackend(backend, client, Logger.With("runner", name))
			}
		}

		policies, err := newPolicies(rc.Policies)
		if err != nil {
			return err
		}
		r, err := episode.New(episode.Dependencies{
			Name:     name,
			Logger:   Logger,
			Backend:  backend,
			Metrics:  metrics,
			Meter:    OTelProvider.Meter("github.com/skyduel/dogfight/internal/episode"),
			Options:  opts,
			Policies: policies,
			Reward:   config.GetRewardConfig(),
			Config:   rc,
			Stats:    stats,
		})
		if err != nil {
			return err
		}
		runners = append(runners, r)
	}

	monitored := make([]monitor.Runner, len(runners))
	for i, r := range runners {
		monitored[i] = r
	}
	monitorService := monitor.NewService(monitor.Dependencies{
		Logger:     Logger,
		Runners:    monitored,
		Stats:      stats,
		DB:         db,
		StatusPath: filepath.Join(runnerLogDir(), "status.json"),
		Interval:   rc.MonitorInterval,
	})
	SlogManager.GetEpisodeCount = stats.Rounds
	SlogManager.IsStatusRunning = monitorService.IsRunning
	if len(runners) == 1 {
		SlogManager.GetEpisodeName = func() string {
			return runners[0].Context().GetEpisode().Name
		}
	}
	if err := monitorService.Start(); err != nil {
		Logger.Warn("Failed to start monitor", "error", err)
	}

	Logger.Info("Starting run",
		"episodes", rc.Episodes,
		"runners", rc.Parallel,
		"storage", storageCfg.Type,
		"red", rc.Policies[core.Red],
		"blue", rc.Policies[core.Blue],
	)
	started := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	for i, part := range split(rc.Episodes, len(runners)) {
		r := runners[i]
		first, count := part[0], part[1]
		if count == 0 {
			continue
		}
		g.Go(func() error {
			return r.Run(gctx, first, count)
		})
	}
	runErr := g.Wait()

	monitorService.Stop()

	summary := stats.Snapshot()
	Logger.Info("Run finished",
		"duration", time.Since(started),
		"rounds", summary.Rounds,
		"redWins", summary.RedWins,
		"blueWins", summary.BlueWins,
		"draws", summary.Draws,
		"truncated", summary.Truncated,
		"redWinRate", summary.WinRate(core.Red),
		"blueWinRate", summary.WinRate(core.Blue),
	)
	if metrics != nil {
		if err := influxManager.WritePoint(influx.SummaryPoint(rc.Tag, summary, time.Now())); err != nil {
			Logger.Warn("Failed to write run summary", "error", err)
		}
	}

	return runErr
}

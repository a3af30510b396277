package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/episode"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/internal/policy"
	"github.com/skyduel/dogfight/internal/storage"
	"github.com/skyduel/dogfight/pkg/core"
)

type fakeRunner struct {
	name      string
	ctx       *episode.Context
	completed int
	ticks     int
	backend   storage.Backend
}

func (f *fakeRunner) Name() string              { return f.name }
func (f *fakeRunner) Context() *episode.Context { return f.ctx }
func (f *fakeRunner) Completed() int            { return f.completed }
func (f *fakeRunner) TicksDone() int            { return f.ticks }
func (f *fakeRunner) Backend() storage.Backend  { return f.backend }

var _ Runner = (*episode.Runner)(nil)

func TestGetStatus_TicksPerSecond(t *testing.T) {
	ctx := episode.NewContext()
	ctx.SetEpisode(&core.Episode{Name: "r0 episode 2"})
	ctx.SetProgress(40, 4)
	r := &fakeRunner{name: "r0", ctx: ctx, completed: 2, ticks: 1000}

	stats := episode.NewStats()
	stats.Record(&core.Outcome{Winner: core.BlueWins})
	s := NewService(Dependencies{Runners: []Runner{r}, Stats: stats})

	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := s.GetStatus(t0)
	require.Len(t, st.Runners, 1)
	assert.Equal(t, RunnerStatus{Name: "r0", Episode: "r0 episode 2", Tick: 40, SimTime: 4, EpisodesDone: 2}, st.Runners[0])
	assert.Equal(t, 1, st.Summary.BlueWins)

	r.ticks = 1500
	st = s.GetStatus(t0.Add(2 * time.Second))
	assert.Equal(t, 250.0, st.Runners[0].TicksPerSecond)
}

func TestPerformance(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := Performance(Status{Time: now, Runners: []RunnerStatus{
		{Name: "r0", EpisodesDone: 3, TicksPerSecond: 12.5, WriteQueueLength: 7, LastWriteDurationMs: 1.5},
	}})
	assert.Equal(t, []model.RunnerPerformance{{
		Time: now, RunnerName: "r0", EpisodesDone: 3, TicksPerSecond: 12.5, WriteQueueLength: 7, LastWriteDurationMs: 1.5,
	}}, rows)
}

func TestWriteStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "status.json")
	require.NoError(t, WriteStatusFile(path, Status{Runners: []RunnerStatus{{Name: "r0"}}}))
	// a second write replaces the first
	require.NoError(t, WriteStatusFile(path, Status{Runners: []RunnerStatus{{Name: "r1"}}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var st Status
	require.NoError(t, json.Unmarshal(data, &st))
	require.Len(t, st.Runners, 1)
	assert.Equal(t, "r1", st.Runners[0].Name)
}

func TestStartStop_WritesStatusAndPerformance(t *testing.T) {
	db, err := database.OpenSQLite(database.MemoryDSN("monitor"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	opts := battle.DefaultOptions()
	opts.MaxDuration = 5
	runner, err := episode.New(episode.Dependencies{
		Name:     "r0",
		Options:  opts,
		Policies: [2]policy.Policy{policy.Idle{}, policy.Idle{}},
		Config:   config.RunnerConfig{FrameInterval: 10, DecisionTicks: 10},
	})
	require.NoError(t, err)
	defer runner.Close()
	_, err = runner.RunEpisode(context.Background(), 0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{
		Runners:    []Runner{runner},
		DB:         db,
		StatusPath: path,
		Interval:   10 * time.Millisecond,
	})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "starting twice is a no-op")
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())

	var rows []model.RunnerPerformance
	require.NoError(t, db.Find(&rows).Error)
	require.NotEmpty(t, rows)
	assert.Equal(t, "r0", rows[0].RunnerName)
	assert.Equal(t, uint(1), rows[len(rows)-1].EpisodesDone)
}

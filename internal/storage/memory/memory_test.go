package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/storage"
	v1 "github.com/skyduel/dogfight/internal/storage/memory/export/v1"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEpisode() *core.Episode {
	return &core.Episode{
		Name:      "episode: 1",
		StartTime: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Seed:      7,
		DeltaTime: 0.1,
		MaxTime:   60,
		Width:     100000,
		Height:    100000,
	}
}

func record(t *testing.T, b *Backend) {
	t.Helper()
	require.NoError(t, b.StartEpisode(testEpisode()))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1", Kind: core.KindAircraft, Color: core.Red}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "blue_1", Kind: core.KindAircraft, Color: core.Blue}))
	require.NoError(t, b.RecordFrame(&core.Frame{Tick: 0, Time: 0, States: []core.EntityState{
		{Name: "red_1", Pose: core.Pose{X: 0, Y: -5000}, Fuel: 100, MissileCount: 4},
		{Name: "blue_1", Pose: core.Pose{X: 0, Y: 3000, Heading: 180}},
		{Name: "ghost"},
	}}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1_missile_3", Kind: core.KindMissile, Color: core.Red, Tick: 1}))
	require.NoError(t, b.RecordFiredEvent(&core.FiredEvent{Tick: 1, Shooter: "red_1", Missile: "red_1_missile_3", Target: "blue_1"}))
	require.NoError(t, b.RecordKillEvent(&core.KillEvent{Tick: 40, Killer: "red_1", Victim: "blue_1", Missile: "red_1_missile_3", Distance: 8000}))
	require.NoError(t, b.RecordDestroyedEvent(&core.DestroyedEvent{Tick: 40, Name: "blue_1", Reason: "missile"}))
}

func TestRecordBeforeStart(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, "Sim", 0, 0)

	assert.ErrorIs(t, b.AddEntity(&core.EntityInfo{Name: "red_1"}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordFrame(&core.Frame{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordFiredEvent(&core.FiredEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordKillEvent(&core.KillEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordDestroyedEvent(&core.DestroyedEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.EndEpisode(&core.Outcome{}), storage.ErrNotStarted)
}

func TestAddEntity_AssignsStableIDs(t *testing.T) {
	b := New(config.MemoryConfig{}, "", 0, 0)
	require.NoError(t, b.StartEpisode(testEpisode()))

	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "a"}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "b"}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "a"}))

	assert.Equal(t, uint16(0), b.entities["a"].ID)
	assert.Equal(t, uint16(1), b.entities["b"].ID)
	assert.Len(t, b.entities, 2)
}

func TestStartEpisode_ResetsCollections(t *testing.T) {
	b := New(config.MemoryConfig{}, "", 0, 0)
	record(t, b)

	require.NoError(t, b.StartEpisode(testEpisode()))
	assert.Empty(t, b.entities)
	assert.Empty(t, b.times)
	assert.Empty(t, b.killEvents)
	assert.Empty(t, b.destroyedEvents)
	assert.Equal(t, uint16(0), b.idCounter)
}

func TestRecordFrame_IgnoresUnknownEntities(t *testing.T) {
	b := New(config.MemoryConfig{}, "", 0, 0)
	record(t, b)

	assert.Len(t, b.entities["red_1"].States, 1)
	assert.Len(t, b.entities["blue_1"].States, 1)
	assert.NotContains(t, b.entities, "ghost")
	assert.Equal(t, []v1.Time{{FrameNum: 0, Time: 0}}, b.times)
	assert.Len(t, b.entities["red_1"].Fired, 1)
}

func TestEndEpisode_WritesGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true}, "Sim", 13.4, 52.5)
	record(t, b)

	require.NoError(t, b.EndEpisode(&core.Outcome{Winner: core.RedWins, Elapsed: 4, Ticks: 40}))

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "episode__1_20260301_120000.json.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "episode: 1", export.EpisodeName)
	assert.Equal(t, "red", export.Winner)
	assert.Equal(t, 40, export.EndFrame)
	assert.Len(t, export.Entities, 3)
	assert.InDelta(t, 13.4, export.Origin[0], 1e-9)
}

func TestEndEpisode_WritesPlainJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: filepath.Join(dir, "nested")}, "Sim", 0, 0)
	record(t, b)

	require.NoError(t, b.EndEpisode(&core.Outcome{Winner: core.Draw}))

	data, err := os.ReadFile(b.GetExportedFilePath())
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, "draw", export.Winner)
	assert.Equal(t, "Sim", export.Tags)
}

func TestGetExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()}, "Training", 0, 0)
	assert.Equal(t, core.UploadMetadata{}, b.GetExportMetadata())

	record(t, b)
	require.NoError(t, b.EndEpisode(&core.Outcome{Winner: core.BlueWins, Elapsed: 12.5}))

	assert.Equal(t, core.UploadMetadata{
		EpisodeName:  "episode: 1",
		Winner:       "blue",
		Duration:     12.5,
		Tag:          "Training",
		AircraftRed:  1,
		AircraftBlue: 1,
	}, b.GetExportMetadata())
}

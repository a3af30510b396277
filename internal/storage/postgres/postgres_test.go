package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/skyduel/dogfight/internal/database"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/internal/storage"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestBackend runs the gorm backend against a private in-memory sqlite DB.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSQLite(database.MemoryDSN(fmt.Sprintf("pgtest_%s_%d", t.Name(), time.Now().UnixNano())))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	b := New(Dependencies{
		DB:            db,
		Tag:           "Sim",
		FlushInterval: time.Hour,
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func startEpisode(t *testing.T, b *Backend) *core.Episode {
	t.Helper()
	ep := &core.Episode{
		Name:      "ep",
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:      11,
		Callsigns: map[core.Color][]string{core.Red: {"red_1"}, core.Blue: {"blue_1"}},
	}
	require.NoError(t, b.StartEpisode(ep))
	return ep
}

func TestInitClose(t *testing.T) {
	b := newTestBackend(t)
	require.NotNil(t, b.stopChan)
	for _, table := range model.DatabaseModels {
		assert.True(t, b.DB().Migrator().HasTable(table), "%T", table)
	}
	require.NoError(t, b.Close())
	// closing twice is harmless
	require.NoError(t, b.Close())
}

func TestRecordBeforeStart(t *testing.T) {
	b := newTestBackend(t)

	assert.ErrorIs(t, b.AddEntity(&core.EntityInfo{Name: "red_1"}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordFrame(&core.Frame{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordFiredEvent(&core.FiredEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordKillEvent(&core.KillEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordDestroyedEvent(&core.DestroyedEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.EndEpisode(&core.Outcome{}), storage.ErrNotStarted)
}

func TestStartEpisode_AssignsID(t *testing.T) {
	b := newTestBackend(t)
	ep := startEpisode(t, b)

	require.NotZero(t, ep.ID)
	var row model.Episode
	require.NoError(t, b.DB().First(&row, ep.ID).Error)
	assert.Equal(t, "ep", row.Name)
	assert.Equal(t, "Sim", row.Tag)
	assert.Equal(t, int64(11), row.Seed)
}

func TestAddEntity_QueuesOnce(t *testing.T) {
	b := newTestBackend(t)
	startEpisode(t, b)

	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1", Kind: core.KindAircraft}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1", Kind: core.KindAircraft}))
	assert.Equal(t, 1, b.queues.Entities.Len())
}

func TestRecordFrame_SkipsUnregistered(t *testing.T) {
	b := newTestBackend(t)
	startEpisode(t, b)
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1"}))

	require.NoError(t, b.RecordFrame(&core.Frame{Tick: 5, States: []core.EntityState{{Name: "red_1"}, {Name: "ghost"}}}))
	assert.Equal(t, 1, b.queues.EntityStates.Len())
	assert.Equal(t, 2, b.QueueLength())
}

func TestFullEpisode_WritesRows(t *testing.T) {
	b := newTestBackend(t)
	ep := startEpisode(t, b)

	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1", Kind: core.KindAircraft, Color: core.Red}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "blue_1", Kind: core.KindAircraft, Color: core.Blue}))
	require.NoError(t, b.RecordFrame(&core.Frame{Tick: 0, States: []core.EntityState{
		{Name: "red_1", Pose: core.Pose{Y: -5000}, MissileCount: 4, Route: []core.XY{{X: 0, Y: -5000}, {X: 0, Y: 0}}},
		{Name: "blue_1", Pose: core.Pose{Y: 3000, Heading: 180}},
	}}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1_missile_3", Kind: core.KindMissile, Tick: 1}))
	require.NoError(t, b.RecordFiredEvent(&core.FiredEvent{Tick: 1, Shooter: "red_1", Missile: "red_1_missile_3", Target: "blue_1"}))
	require.NoError(t, b.RecordKillEvent(&core.KillEvent{Tick: 20, Killer: "red_1", Victim: "blue_1", Distance: 8000}))
	require.NoError(t, b.RecordDestroyedEvent(&core.DestroyedEvent{Tick: 20, Name: "blue_1", Kind: core.KindAircraft, Reason: "missile"}))

	out := &core.Outcome{Winner: core.RedWins, Elapsed: 2, Ticks: 20, Reward: [2]float64{1, -1}}
	require.NoError(t, b.EndEpisode(out))
	assert.Equal(t, ep.ID, out.EpisodeID)
	assert.Equal(t, 0, b.QueueLength())

	db := b.DB()
	var count int64
	require.NoError(t, db.Model(&model.Entity{}).Where("episode_id = ?", ep.ID).Count(&count).Error)
	assert.Equal(t, int64(3), count)
	require.NoError(t, db.Model(&model.EntityState{}).Where("episode_id = ?", ep.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	var fired model.FiredEvent
	require.NoError(t, db.Where("episode_id = ?", ep.ID).First(&fired).Error)
	assert.Equal(t, int32(0), fired.ShooterObjectID.Int32)
	assert.Equal(t, int32(2), fired.MissileObjectID.Int32)

	var kill model.KillEvent
	require.NoError(t, db.Where("episode_id = ?", ep.ID).First(&kill).Error)
	assert.Equal(t, int32(1), kill.VictimObjectID.Int32)

	var outcome model.Outcome
	require.NoError(t, db.Where("episode_id = ?", ep.ID).First(&outcome).Error)
	assert.Equal(t, "red", outcome.Winner)
	assert.Equal(t, 1.0, outcome.RewardRed)

	// a finished episode takes no more records
	assert.ErrorIs(t, b.RecordFrame(&core.Frame{}), storage.ErrNotStarted)
}

func TestStartEpisode_ResetsObjectIDs(t *testing.T) {
	b := newTestBackend(t)

	startEpisode(t, b)
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "red_1"}))
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "blue_1"}))
	require.NoError(t, b.EndEpisode(&core.Outcome{Winner: core.Draw}))

	second := startEpisode(t, b)
	require.NoError(t, b.AddEntity(&core.EntityInfo{Name: "blue_1"}))
	require.NoError(t, b.Flush())

	var ent model.Entity
	require.NoError(t, b.DB().Where("episode_id = ? AND name = ?", second.ID, "blue_1").First(&ent).Error)
	assert.Equal(t, uint16(0), ent.ObjectID)
	assert.Positive(t, b.LastWriteDuration())
}

package episode

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/policy"
	"github.com/skyduel/dogfight/pkg/core"
)

// recorder is an in-test storage.Backend that keeps everything it is given.
type recorder struct {
	mu        sync.Mutex
	episodes  []*core.Episode
	outcomes  []*core.Outcome
	entities  []core.EntityInfo
	frames    []core.Frame
	fired     []core.FiredEvent
	kills     []core.KillEvent
	destroyed []core.DestroyedEvent
	log       []string
}

func (r *recorder) Init() error  { return nil }
func (r *recorder) Close() error { return nil }

func (r *recorder) StartEpisode(ep *core.Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.episodes = append(r.episodes, ep)
	return nil
}

func (r *recorder) EndEpisode(out *core.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, out)
	return nil
}

func (r *recorder) AddEntity(info *core.EntityInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities = append(r.entities, *info)
	r.log = append(r.log, "entity:"+info.Name)
	return nil
}

func (r *recorder) RecordFrame(f *core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, *f)
	return nil
}

func (r *recorder) RecordFiredEvent(e *core.FiredEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, *e)
	r.log = append(r.log, "fired:"+e.Missile)
	return nil
}

func (r *recorder) RecordKillEvent(e *core.KillEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kills = append(r.kills, *e)
	return nil
}

func (r *recorder) RecordDestroyedEvent(e *core.DestroyedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.destroyed = append(r.destroyed, *e)
	return nil
}

type metricsRecorder struct {
	outcomes []*core.Outcome
}

func (m *metricsRecorder) WriteOutcome(_ context.Context, _ *core.Episode, out *core.Outcome) error {
	m.outcomes = append(m.outcomes, out)
	return nil
}

// headOnOptions puts both aircraft on a collision course 2 km apart.
func headOnOptions() battle.Options {
	o := battle.DefaultOptions()
	o.MaxDuration = 60
	o.Spawns = map[string]core.Pose{
		"red_1":  {X: -1000, Y: 0, Heading: 90},
		"blue_1": {X: 1000, Y: 0, Heading: 270},
	}
	return o
}

// tailChaseOptions puts red 8 km behind blue, both heading north.
func tailChaseOptions() battle.Options {
	o := battle.DefaultOptions()
	o.MaxDuration = 300
	o.Sides[core.Red].HomePosition = &core.XY{X: -40000, Y: 0}
	o.Sides[core.Blue].HomePosition = &core.XY{X: 40000, Y: 0}
	o.Spawns = map[string]core.Pose{
		"red_1":  {X: 0, Y: -5000, Heading: 0},
		"blue_1": {X: 0, Y: 3000, Heading: 0},
	}
	return o
}

func newRunner(t *testing.T, opts battle.Options, red, blue policy.Policy, deps Dependencies) *Runner {
	t.Helper()
	deps.Name = "test"
	deps.Options = opts
	deps.Policies = [2]policy.Policy{core.Red: red, core.Blue: blue}
	if deps.Config.FrameInterval == 0 {
		deps.Config = config.RunnerConfig{FrameInterval: 5, DecisionTicks: 10}
	}
	r, err := New(deps)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNew_Validation(t *testing.T) {
	bad := battle.DefaultOptions()
	bad.DeltaTime = 0
	_, err := New(Dependencies{Options: bad, Policies: [2]policy.Policy{policy.Idle{}, policy.Idle{}}})
	assert.Error(t, err)

	_, err = New(Dependencies{Options: battle.DefaultOptions(), Policies: [2]policy.Policy{policy.Idle{}}})
	assert.ErrorContains(t, err, "no policy for blue")
}

func TestRunEpisode_HeadOnCollisionIsDraw(t *testing.T) {
	rec := &recorder{}
	metrics := &metricsRecorder{}
	stats := NewStats()
	r := newRunner(t, headOnOptions(), policy.Idle{}, policy.Idle{}, Dependencies{
		Backend: rec,
		Metrics: metrics,
		Stats:   stats,
		Reward:  config.RewardConfig{Win: 1, Lose: -1, Draw: 0.5},
	})

	out, err := r.RunEpisode(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, core.Draw, out.Winner)
	assert.False(t, out.Truncated)
	assert.Greater(t, out.Ticks, uint(0))
	assert.InDelta(t, float64(out.Ticks)*0.1, out.Elapsed, 1e-9)
	assert.Equal(t, [2]float64{0.5, 0.5}, out.Reward)
	assert.Zero(t, out.Remaining.Aircraft[core.Red]+out.Remaining.Aircraft[core.Blue])

	require.Len(t, rec.episodes, 1)
	ep := rec.episodes[0]
	assert.Equal(t, "test episode 0", ep.Name)
	assert.Equal(t, uint64(1), ep.Seed)
	assert.Equal(t, []string{"blue_1"}, ep.Callsigns[core.Blue])
	assert.Equal(t, 100000.0, ep.Options["width"])

	names := make(map[string]int)
	for _, e := range rec.entities {
		names[e.Name]++
	}
	assert.Equal(t, map[string]int{"red_home": 1, "blue_home": 1, battle.BullseyeName: 1, "red_1": 1, "blue_1": 1}, names)

	require.NotEmpty(t, rec.frames)
	assert.Equal(t, uint(0), rec.frames[0].Tick)
	assert.Equal(t, out.Ticks, rec.frames[len(rec.frames)-1].Tick)
	assert.Len(t, rec.frames[0].States, 5)

	require.Len(t, rec.destroyed, 2)
	for _, d := range rec.destroyed {
		assert.Equal(t, battle.ReasonCollision, d.Reason)
	}
	require.Len(t, rec.outcomes, 1)
	assert.Same(t, out, rec.outcomes[0])
	assert.Len(t, metrics.outcomes, 1)

	s := stats.Snapshot()
	assert.Equal(t, 1, s.Rounds)
	assert.Equal(t, 1, s.Draws)
	assert.Equal(t, [2]float64{0.5, 0.5}, s.Reward)

	tick, _ := r.Context().Progress()
	assert.Zero(t, tick, "progress moves into TicksDone once the episode ends")
	assert.Equal(t, int(out.Ticks), r.TicksDone())
	assert.Equal(t, 1, r.Completed())
	assert.Equal(t, "test episode 0", r.Context().GetEpisode().Name)
}

func TestRunEpisode_ScriptedShooterWins(t *testing.T) {
	rec := &recorder{}
	r := newRunner(t, tailChaseOptions(), policy.NewScripted(policy.DefaultScriptedConfig()), policy.Idle{}, Dependencies{
		Backend: rec,
		Reward:  config.RewardConfig{Win: 1, Lose: -1, Kill: 0.1, Loss: 0.1},
	})

	out, err := r.RunEpisode(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, core.RedWins, out.Winner)
	// the kill bonus is lost when the kill itself ends the episode
	assert.GreaterOrEqual(t, out.Reward[core.Red], 1.0)
	assert.LessOrEqual(t, out.Reward[core.Blue], -1.0)
	assert.InDelta(t, out.Reward[core.Red], -out.Reward[core.Blue], 1e-12)

	require.NotEmpty(t, rec.fired)
	require.NotEmpty(t, rec.kills)
	assert.Equal(t, "red_1", rec.kills[0].Killer)
	assert.Equal(t, "blue_1", rec.kills[0].Victim)

	// every missile is announced before its launch is recorded
	for _, f := range rec.fired {
		entity := indexOf(rec.log, "entity:"+f.Missile)
		fired := indexOf(rec.log, "fired:"+f.Missile)
		require.GreaterOrEqual(t, entity, 0, f.Missile)
		assert.Less(t, entity, fired, f.Missile)
	}
}

func indexOf(items []string, s string) int {
	for i, v := range items {
		if v == s {
			return i
		}
	}
	return -1
}

func TestRunEpisode_SeedsFollowIndex(t *testing.T) {
	rec := &recorder{}
	r := newRunner(t, headOnOptions(), policy.Idle{}, policy.Idle{}, Dependencies{Backend: rec})

	require.NoError(t, r.Run(context.Background(), 3, 2))
	require.Len(t, rec.episodes, 2)
	assert.Equal(t, uint64(4), rec.episodes[0].Seed)
	assert.Equal(t, uint64(5), rec.episodes[1].Seed)
	assert.Equal(t, "test episode 4", rec.episodes[1].Name)
	assert.Len(t, rec.outcomes, 2)
}

func TestRunEpisode_Cancelled(t *testing.T) {
	rec := &recorder{}
	stats := NewStats()
	r := newRunner(t, headOnOptions(), policy.Idle{}, policy.Idle{}, Dependencies{Backend: rec, Stats: stats})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := r.RunEpisode(ctx, 0)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, out)
	assert.Equal(t, core.Undecided, out.Winner)
	assert.Equal(t, uint(0), out.Ticks)
	assert.Len(t, rec.outcomes, 1, "a cancelled episode is still closed")
	assert.Zero(t, stats.Rounds())
}

// volley fires at the nearest enemy at every decision.
type volley struct{}

func (volley) Reset(battle.Options) {}

func (volley) Decide(area *battle.BattleArea, agent *battle.Aircraft) []core.Action {
	enemy, err := area.FindNearestEnemy(agent.Name, true)
	if err != nil || enemy == nil {
		return nil
	}
	return []core.Action{core.Fire(enemy.Pose.X, enemy.Pose.Y)}
}

func TestRunEpisode_NoLaunchesPastMaxDuration(t *testing.T) {
	opts := tailChaseOptions()
	opts.MaxDuration = 20
	opts.Aircraft.MissileCount = 1000
	// missiles burn out long before they can reach the other side
	opts.Missile.FuelCapacity = 5

	rec := &recorder{}
	r := newRunner(t, opts, volley{}, volley{}, Dependencies{Backend: rec})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	out, err := r.RunEpisode(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, core.Draw, out.Winner)
	assert.True(t, out.Truncated)
	assert.LessOrEqual(t, out.Elapsed, opts.MaxDuration+opts.MissileFlightDuration()+1.5)
	assert.Empty(t, rec.kills)

	require.NotEmpty(t, rec.fired)
	for _, f := range rec.fired {
		assert.LessOrEqual(t, f.Time, opts.MaxDuration+0.2, f.Missile)
	}
}

func TestRunEpisode_WithoutBackend(t *testing.T) {
	r := newRunner(t, headOnOptions(), policy.Idle{}, policy.Idle{}, Dependencies{})
	out, err := r.RunEpisode(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, core.Draw, out.Winner)
}

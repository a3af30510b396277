// Package episode plays battles from reset to outcome and records them.
package episode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/internal/cache"
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/internal/logging"
	"github.com/skyduel/dogfight/internal/policy"
	"github.com/skyduel/dogfight/internal/storage"
	"github.com/skyduel/dogfight/pkg/core"
)

const instrumentationName = "github.com/skyduel/dogfight/internal/episode"

// MetricsWriter receives every finished episode.
type MetricsWriter interface {
	WriteOutcome(ctx context.Context, ep *core.Episode, out *core.Outcome) error
}

// Dependencies holds everything a Runner needs. Backend, Metrics, Meter,
// Stats and Context are optional.
type Dependencies struct {
	Name     string
	Logger   *slog.Logger
	Backend  storage.Backend
	Metrics  MetricsWriter
	Meter    metric.Meter
	Options  battle.Options
	Policies [2]policy.Policy // indexed by core.Color
	Reward   config.RewardConfig
	Config   config.RunnerConfig
	Stats    *Stats
	Context  *Context
}

// Runner owns one battle area and plays episodes on it sequentially.
type Runner struct {
	deps     Dependencies
	log      *slog.Logger
	area     *battle.BattleArea
	reward   *Reward
	entities *cache.EntityCache
	ctx      *Context

	// per decision step
	kills  [2]int
	losses [2]int

	completed cache.SafeCounter
	ticksDone cache.SafeCounter

	episodes metric.Int64Counter
	ticks    metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a Runner. The options are validated here so a bad
// configuration fails before any episode starts.
func New(deps Dependencies) (*Runner, error) {
	if err := deps.Options.Validate(); err != nil {
		return nil, fmt.Errorf("invalid battle options: %w", err)
	}
	for _, c := range core.Colors {
		if deps.Policies[c] == nil {
			return nil, fmt.Errorf("no policy for %s", c)
		}
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Meter == nil {
		deps.Meter = otel.Meter(instrumentationName)
	}
	if deps.Context == nil {
		deps.Context = NewContext()
	}
	if deps.Config.FrameInterval < 1 {
		deps.Config.FrameInterval = 1
	}
	if deps.Config.DecisionTicks < 1 {
		deps.Config.DecisionTicks = 1
	}

	log := deps.Logger.With("runner", deps.Name)
	r := &Runner{
		deps:     deps,
		log:      log,
		area:     battle.New(deps.Options, log),
		reward:   NewReward(deps.Reward),
		entities: cache.NewEntityCache(),
		ctx:      deps.Context,
	}

	var err error
	r.episodes, err = deps.Meter.Int64Counter(
		"episode.completed",
		metric.WithDescription("Episodes played to an outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating episode counter: %w", err)
	}
	r.ticks, err = deps.Meter.Int64Counter(
		"episode.ticks",
		metric.WithDescription("Simulation ticks advanced"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	r.duration, err = deps.Meter.Float64Histogram(
		"episode.duration",
		metric.WithDescription("Wall clock time per episode"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return r, nil
}

// Area exposes the battle area, e.g. for a control session.
func (r *Runner) Area() *battle.BattleArea { return r.area }

// Context returns the current-episode context.
func (r *Runner) Context() *Context { return r.ctx }

// Name identifies the runner in logs and recordings.
func (r *Runner) Name() string { return r.deps.Name }

// Backend returns the recording backend, nil when recording is off.
func (r *Runner) Backend() storage.Backend { return r.deps.Backend }

// Completed is the number of episodes this runner has finished.
func (r *Runner) Completed() int { return r.completed.Value() }

// TicksDone counts the ticks of finished episodes plus the current one.
func (r *Runner) TicksDone() int {
	tick, _ := r.ctx.Progress()
	return r.ticksDone.Value() + int(tick)
}

// Close invalidates the area.
func (r *Runner) Close() {
	r.area.Close()
}

// Run plays n episodes numbered first, first+1, ... and stops at the
// first error.
func (r *Runner) Run(ctx context.Context, first, n int) error {
	for i := first; i < first+n; i++ {
		if _, err := r.RunEpisode(ctx, i); err != nil {
			return err
		}
	}
	return nil
}

// RunEpisode resets the area with the seed for index and plays until the
// outcome is decided. Policies are not consulted once the maximum duration
// has elapsed. If ctx is cancelled the episode is ended undecided
// and ctx's error returned.
func (r *Runner) RunEpisode(ctx context.Context, index int) (*core.Outcome, error) {
	started := time.Now()
	opts := r.deps.Options
	seed := opts.Seed + uint64(index)

	r.area.Reseed(seed)
	r.area.Reset()
	r.area.DrainEvents()
	r.reward.Reset()
	r.entities.Reset()
	r.kills, r.losses = [2]int{}, [2]int{}
	for _, c := range core.Colors {
		r.deps.Policies[c].Reset(opts)
	}

	ep := &core.Episode{
		Name:       fmt.Sprintf("%s episode %d", r.deps.Name, index),
		StartTime:  started.UTC(),
		Seed:       seed,
		DeltaTime:  opts.DeltaTime,
		MaxTime:    opts.MaxDuration,
		Width:      opts.Width,
		Height:     opts.Height,
		Callsigns:  callsigns(opts),
		Options:    snapshot(opts),
		RunnerName: r.deps.Name,
	}
	r.ctx.SetEpisode(ep)
	ctx = logging.WithEpisode(ctx, ep.Name)

	if b := r.deps.Backend; b != nil {
		if err := b.StartEpisode(ep); err != nil {
			return nil, fmt.Errorf("start episode %q: %w", ep.Name, err)
		}
	}
	r.log.InfoContext(ctx, "Episode started", "seed", seed)
	r.recordFrame(ctx)

	var winner core.Winner
	for !winner.Decided() {
		if err := ctx.Err(); err != nil {
			out := r.finish(ctx, ep, core.Undecided, started)
			return out, err
		}

		// past the time limit only airborne missiles keep the episode
		// open, so nobody may launch more
		if !r.area.Truncated() && r.area.Tick()%uint(r.deps.Config.DecisionTicks) == 0 {
			r.decide(ctx)
		}

		r.area.Update()
		r.ctx.SetProgress(r.area.Tick(), r.area.Time())
		r.handleEvents(ctx)
		winner = r.area.Winner()

		if r.area.Tick()%uint(r.deps.Config.FrameInterval) == 0 || winner.Decided() {
			r.recordFrame(ctx)
		}
		if r.area.Tick()%uint(r.deps.Config.DecisionTicks) == 0 || winner.Decided() {
			r.stepReward(winner)
		}
	}

	return r.finish(ctx, ep, winner, started), nil
}

func (r *Runner) decide(ctx context.Context) {
	for _, ac := range r.area.AircraftList() {
		if ac.Destroyed {
			continue
		}
		for _, act := range r.deps.Policies[ac.Color].Decide(r.area, ac) {
			if err := r.area.PutAction(ac.Name, act); err != nil {
				r.log.DebugContext(logging.WithTick(ctx, int64(r.area.Tick())),
					"Action rejected", "name", ac.Name, "action", act.Kind, "error", err)
			}
		}
	}
}

func (r *Runner) stepReward(winner core.Winner) {
	for _, c := range core.Colors {
		r.reward.Step(c, r.area.Time(), winner, r.kills[c], r.losses[c])
	}
	r.kills, r.losses = [2]int{}, [2]int{}
}

// register adds an entity to the cache and announces it to the backend
// the first time it is seen.
func (r *Runner) register(ctx context.Context, info core.EntityInfo) {
	if _, created := r.entities.Add(info); !created || r.deps.Backend == nil {
		return
	}
	if err := r.deps.Backend.AddEntity(&info); err != nil {
		r.log.WarnContext(ctx, "Failed to record entity", "name", info.Name, "error", err)
	}
}

func (r *Runner) colorOf(name string) (core.Color, bool) {
	id, ok := r.entities.Get(name)
	if !ok {
		return 0, false
	}
	info, ok := r.entities.Info(id)
	return info.Color, ok
}

func (r *Runner) handleEvents(ctx context.Context) {
	tick := r.area.Tick()
	for _, ev := range r.area.DrainEvents() {
		switch e := ev.(type) {
		case core.FiredEvent:
			r.register(ctx, core.EntityInfo{
				Name: e.Missile, Kind: core.KindMissile, Color: e.Color, Time: e.Time, Tick: e.Tick,
			})
		case core.KillEvent:
			if c, ok := r.colorOf(e.Killer); ok {
				r.kills[c]++
			}
			if c, ok := r.colorOf(e.Victim); ok {
				r.losses[c]++
			}
			r.log.DebugContext(logging.WithTick(ctx, int64(tick)), "Kill",
				"killer", e.Killer, "victim", e.Victim, "missile", e.Missile)
		}
		if r.deps.Backend == nil {
			continue
		}
		if err := storage.RecordEvent(r.deps.Backend, ev); err != nil {
			r.log.WarnContext(ctx, "Failed to record event", "error", err)
		}
	}
}

func (r *Runner) recordFrame(ctx context.Context) {
	states := r.area.States()
	tick, now := r.area.Tick(), r.area.Time()
	for _, s := range states {
		r.register(ctx, core.EntityInfo{Name: s.Name, Kind: s.Kind, Color: s.Color, Time: now, Tick: tick})
	}
	if r.deps.Backend == nil {
		return
	}
	if err := r.deps.Backend.RecordFrame(&core.Frame{Tick: tick, Time: now, States: states}); err != nil {
		r.log.WarnContext(ctx, "Failed to record frame", "tick", tick, "error", err)
	}
}

func (r *Runner) finish(ctx context.Context, ep *core.Episode, winner core.Winner, started time.Time) *core.Outcome {
	out := &core.Outcome{
		Winner:    winner,
		Elapsed:   r.area.Time(),
		Ticks:     r.area.Tick(),
		Remaining: r.area.RemainCount(),
		Truncated: r.area.Truncated(),
		Reward:    r.reward.Totals(),
		EndTime:   time.Now().UTC(),
	}

	// the caller's context may already be cancelled; the outcome is still stored
	bg := context.WithoutCancel(ctx)
	if b := r.deps.Backend; b != nil {
		if err := b.EndEpisode(out); err != nil {
			r.log.ErrorContext(bg, "Failed to end episode", "error", err)
		}
	}
	if r.deps.Metrics != nil {
		if err := r.deps.Metrics.WriteOutcome(bg, ep, out); err != nil {
			r.log.WarnContext(bg, "Failed to write episode metrics", "error", err)
		}
	}
	r.ticksDone.Set(r.ticksDone.Value() + int(out.Ticks))
	r.ctx.SetProgress(0, 0)
	r.completed.Inc()
	if winner.Decided() && r.deps.Stats != nil {
		r.deps.Stats.Record(out)
	}

	attrs := metric.WithAttributes(attribute.String("runner", r.deps.Name), attribute.String("winner", string(winner)))
	r.episodes.Add(bg, 1, attrs)
	r.ticks.Add(bg, int64(out.Ticks), metric.WithAttributes(attribute.String("runner", r.deps.Name)))
	r.duration.Record(bg, time.Since(started).Seconds(), attrs)

	r.log.InfoContext(bg, "Episode finished",
		"winner", winner,
		"elapsed", out.Elapsed,
		"ticks", out.Ticks,
		"truncated", out.Truncated,
		"rewardRed", out.Reward[core.Red],
		"rewardBlue", out.Reward[core.Blue],
	)
	return out
}

func callsigns(o battle.Options) map[core.Color][]string {
	out := make(map[core.Color][]string, len(core.Colors))
	for _, c := range core.Colors {
		out[c] = append([]string(nil), o.Sides[c].Callsigns...)
	}
	return out
}

// snapshot flattens the options into the generic form stored with the episode.
func snapshot(o battle.Options) map[string]any {
	data, err := json.Marshal(o)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

package battle

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
)

var (
	// ErrUnknownEntity is returned when a name does not match any entity.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrNotAircraft is returned when an aircraft-only query names another kind.
	ErrNotAircraft = errors.New("entity is not an aircraft")
	// ErrDuplicateName is returned when adding an entity whose name is taken.
	ErrDuplicateName = errors.New("duplicate entity name")
)

// BattleArea owns every entity and advances the simulation one tick at a
// time. Update, Reset and the query methods must be called from a single
// goroutine; PutAction and Get may be called from others.
type BattleArea struct {
	opts   Options
	bounds geo.Bounds
	log    *slog.Logger
	rng    *rand.Rand

	gen    uint64
	closed bool
	time   float64
	tick   uint

	mu    sync.RWMutex // guards objs and order
	objs  map[string]Entity
	order []string

	removals []string

	eventsMu sync.Mutex
	events   []core.Event
}

// New creates an empty area. Call Reset to populate it.
func New(opts Options, logger *slog.Logger) *BattleArea {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &BattleArea{
		opts:   opts,
		bounds: opts.Bounds(),
		log:    logger.With("component", "battle"),
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		objs:   make(map[string]Entity),
	}
}

// Options returns the episode parameters.
func (a *BattleArea) Options() Options { return a.opts }

// Time is the elapsed simulated time in seconds.
func (a *BattleArea) Time() float64 { return a.time }

// Tick is the number of completed updates since reset.
func (a *BattleArea) Tick() uint { return a.tick }

// Reset clears the area and places bases, the bullseye and every
// aircraft. Handles held by entities of the previous episode go stale.
func (a *BattleArea) Reset() {
	a.gen++
	a.closed = false
	a.time = 0
	a.tick = 0
	a.removals = nil
	a.DrainEvents()

	a.mu.Lock()
	a.objs = make(map[string]Entity)
	a.order = nil
	a.mu.Unlock()

	for _, c := range core.Colors {
		a.add(NewHomeBase(a.opts.HomeName(c), c, a.opts.HomePosition(c), a.opts.Home.Radius))
	}
	a.add(NewBullseye(a.opts.Bullseye))
	for _, c := range core.Colors {
		home := a.opts.HomePosition(c)
		for _, name := range a.opts.Sides[c].Callsigns {
			a.add(NewAircraft(name, c, a.spawnPose(name, home), a.opts.Aircraft))
		}
	}
	a.log.Debug("area reset", "generation", a.gen, "entities", len(a.order))
}

// Reseed resets the random source used for spawn placement.
func (a *BattleArea) Reseed(seed uint64) {
	a.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func (a *BattleArea) spawnPose(name string, home core.XY) core.Pose {
	if p, ok := a.opts.Spawns[name]; ok {
		return p
	}
	r := a.opts.Home.SpawnRadius * math.Sqrt(a.rng.Float64())
	theta := a.rng.Float64() * 2 * math.Pi
	return core.Pose{
		X:       home.X + r*math.Cos(theta),
		Y:       home.Y + r*math.Sin(theta),
		Heading: a.rng.Float64() * 360,
	}
}

// Close invalidates all entity handles. Entities updated afterwards
// destroy themselves.
func (a *BattleArea) Close() {
	a.closed = true
}

// Add registers an entity built outside Reset.
func (a *BattleArea) Add(e Entity) error {
	name := e.Object().Name
	if _, ok := a.Get(name); ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	a.add(e)
	return nil
}

func (a *BattleArea) add(e Entity) {
	obj := e.Object()
	obj.area = Handle{area: a, gen: a.gen}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.objs[obj.Name]; !exists {
		a.order = append(a.order, obj.Name)
	}
	a.objs[obj.Name] = e
}

// Remove deletes an entity from the area.
func (a *BattleArea) Remove(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.objs[name]; !ok {
		return
	}
	delete(a.objs, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

func (a *BattleArea) scheduleRemoval(name string) {
	a.removals = append(a.removals, name)
}

// uniqueName returns base, or base with a numeric suffix if base is taken.
func (a *BattleArea) uniqueName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, taken := a.Get(name); !taken {
			return name
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
}

// Get looks up an entity by name.
func (a *BattleArea) Get(name string) (Entity, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.objs[name]
	return e, ok
}

// Aircraft looks up an aircraft by name.
func (a *BattleArea) Aircraft(name string) (*Aircraft, bool) {
	e, ok := a.Get(name)
	if !ok {
		return nil, false
	}
	ac, ok := e.(*Aircraft)
	return ac, ok
}

// Entities returns all entities in insertion order.
func (a *BattleArea) Entities() []Entity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]Entity, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.objs[name])
	}
	return out
}

// AircraftList returns all aircraft, destroyed ones included, in insertion order.
func (a *BattleArea) AircraftList() []*Aircraft {
	return entitiesOf[*Aircraft](a)
}

// Missiles returns all missiles still in the area.
func (a *BattleArea) Missiles() []*Missile {
	return entitiesOf[*Missile](a)
}

func entitiesOf[T Entity](a *BattleArea) []T {
	var out []T
	for _, e := range a.Entities() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Home returns side c's base.
func (a *BattleArea) Home(c core.Color) (*HomeBase, bool) {
	e, ok := a.Get(a.opts.HomeName(c))
	if !ok {
		return nil, false
	}
	h, ok := e.(*HomeBase)
	return h, ok
}

// Bullseye returns the reference point.
func (a *BattleArea) Bullseye() (*Bullseye, bool) {
	e, ok := a.Get(BullseyeName)
	if !ok {
		return nil, false
	}
	b, ok := e.(*Bullseye)
	return b, ok
}

// PutAction queues an action for the named entity. ActionNone is accepted
// and dropped; a destroyed entity never drains its queue.
func (a *BattleArea) PutAction(name string, act core.Action) error {
	if err := act.Validate(); err != nil {
		return err
	}
	e, ok := a.Get(name)
	if !ok {
		return fmt.Errorf("put action: %w: %q", ErrUnknownEntity, name)
	}
	if act.Kind == core.ActionNone {
		return nil
	}
	if dropped := e.Object().actions.Push(act); dropped {
		a.log.Debug("action queue full, dropped oldest", "name", name)
	}
	return nil
}

// Update advances the simulation by one tick: every entity updates in
// insertion order, missiles destroyed on an earlier tick are removed, then
// every live pair is checked for collision.
func (a *BattleArea) Update() {
	dt := a.opts.DeltaTime
	for _, e := range a.Entities() {
		if e.Object().Destroyed {
			if _, ok := e.(*Missile); !ok {
				continue
			}
		}
		e.Update(dt)
	}
	for _, name := range a.removals {
		a.Remove(name)
	}
	a.removals = a.removals[:0]

	a.resolveCollisions()
	a.time += dt
	a.tick++
}

func (a *BattleArea) resolveCollisions() {
	ents := a.Entities()
	for i := 0; i < len(ents); i++ {
		for j := i + 1; j < len(ents); j++ {
			oi, oj := ents[i].Object(), ents[j].Object()
			if oi.Destroyed || oj.Destroyed || !oi.Collides(oj) {
				continue
			}
			ents[i].OnCollision(ents[j])
			ents[j].OnCollision(ents[i])
		}
	}
}

func (a *BattleArea) emit(ev core.Event) {
	a.eventsMu.Lock()
	defer a.eventsMu.Unlock()
	a.events = append(a.events, ev)
}

// DrainEvents returns and clears the events recorded since the last call.
func (a *BattleArea) DrainEvents() []core.Event {
	a.eventsMu.Lock()
	defer a.eventsMu.Unlock()
	out := a.events
	a.events = nil
	return out
}

// States snapshots every entity in insertion order.
func (a *BattleArea) States() []core.EntityState {
	ents := a.Entities()
	out := make([]core.EntityState, len(ents))
	for i, e := range ents {
		out[i] = e.State()
	}
	return out
}

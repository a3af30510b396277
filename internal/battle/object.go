package battle

import (
	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/internal/queue"
	"github.com/skyduel/dogfight/pkg/core"
)

// Destruction reasons.
const (
	ReasonFuelExhausted   = "fuel exhausted"
	ReasonOutOfBounds     = "out of bounds"
	ReasonAreaUnavailable = "area unavailable"
	ReasonEnemyBase       = "destroyed by enemy base"
	ReasonCollision       = "mutual collision"
)

// Entity is implemented by *Aircraft, *Missile, *HomeBase and *Bullseye.
type Entity interface {
	Object() *WorldObj
	Update(dt float64)
	OnCollision(other Entity)
	State() core.EntityState
}

// WorldObj is the state every entity shares.
type WorldObj struct {
	Name            string
	Kind            core.Kind
	Color           core.Color
	Pose            core.Pose
	Speed           float64
	TurnRadius      float64
	CollisionRadius float64
	Destroyed       bool
	DestroyedReason string

	route    geo.Sequence
	actions  *queue.Ring[core.Action]
	consumed *queue.Ring[core.ConsumedAction]
	area     Handle
}

func newWorldObj(name string, kind core.Kind, color core.Color, pose core.Pose) WorldObj {
	pose.Heading = core.NormalizeHeading(pose.Heading)
	return WorldObj{
		Name:     name,
		Kind:     kind,
		Color:    color,
		Pose:     pose,
		actions:  queue.NewRing[core.Action](queue.DefaultCapacity),
		consumed: queue.NewRing[core.ConsumedAction](queue.DefaultCapacity),
	}
}

// Object returns the shared state.
func (o *WorldObj) Object() *WorldObj { return o }

// Distance returns the straight-line distance to another entity.
func (o *WorldObj) Distance(other Entity) float64 {
	return o.Pose.Distance(other.Object().Pose)
}

// Collides reports whether o and other touch: both must have a positive
// collision radius and be strictly closer than the sum of the radii.
func (o *WorldObj) Collides(other *WorldObj) bool {
	if o.CollisionRadius <= 0 || other.CollisionRadius <= 0 {
		return false
	}
	return o.Pose.Distance(other.Pose) < o.CollisionRadius+other.CollisionRadius
}

// PendingActions returns the queued actions, oldest first.
func (o *WorldObj) PendingActions() []core.Action { return o.actions.Items() }

// ActionHistory returns the most recently consumed actions, oldest first.
func (o *WorldObj) ActionHistory() []core.ConsumedAction { return o.consumed.Items() }

// Route returns the poses left on the active route.
func (o *WorldObj) Route() []core.Pose {
	if o.route == nil {
		return nil
	}
	return geo.Pending(o.route)
}

// RouteSamples is the number of poses left on the active route.
func (o *WorldObj) RouteSamples() int {
	if o.route == nil {
		return 0
	}
	return o.route.Remaining()
}

// SetRoute replaces the active route. A nil route reverts to straight flight.
func (o *WorldObj) SetRoute(route geo.Sequence) { o.route = route }

// followRoute advances to the next route pose. It reports false, and
// drops the route, once it is exhausted.
func (o *WorldObj) followRoute() bool {
	if o.route == nil {
		return false
	}
	p, ok := o.route.Next()
	if !ok {
		o.route = nil
		return false
	}
	o.Pose = p
	return true
}

func (o *WorldObj) move(dt float64) {
	if !o.followRoute() {
		o.Pose = o.Pose.Forward(o.Speed * dt)
	}
}

func (o *WorldObj) destroy(area *BattleArea, reason string) {
	if o.Destroyed {
		return
	}
	o.Destroyed = true
	o.DestroyedReason = reason
	o.route = nil
	if area == nil {
		return
	}
	area.emit(core.DestroyedEvent{
		Time:     area.time,
		Tick:     area.tick,
		Name:     o.Name,
		Kind:     o.Kind,
		Color:    o.Color,
		Reason:   reason,
		Position: o.Pose.Point(),
	})
	area.log.Debug("entity destroyed", "name", o.Name, "kind", o.Kind.String(), "reason", reason)
}

func (o *WorldObj) checkBounds(area *BattleArea) {
	if !area.opts.DestroyOnBoundaryExit || o.Destroyed {
		return
	}
	if !area.bounds.Contains(o.Pose.Point()) {
		o.destroy(area, ReasonOutOfBounds)
	}
}

// resolve returns the owning area, destroying the entity if it is gone.
func (o *WorldObj) resolve() (*BattleArea, bool) {
	area, ok := o.area.Resolve()
	if !ok {
		o.destroy(nil, ReasonAreaUnavailable)
	}
	return area, ok
}

func (o *WorldObj) baseState() core.EntityState {
	return core.EntityState{
		Name:            o.Name,
		Kind:            o.Kind,
		Color:           o.Color,
		Pose:            o.Pose,
		Speed:           o.Speed,
		TurnRadius:      o.TurnRadius,
		CollisionRadius: o.CollisionRadius,
		Destroyed:       o.Destroyed,
		DestroyedReason: o.DestroyedReason,
		RouteSamples:    o.RouteSamples(),
	}
}

package battle

import (
	"fmt"
	"math"
	"slices"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
)

// Aircraft is a fighter that flies routes, fires missiles and returns to base.
type Aircraft struct {
	WorldObj

	MissileCount        int
	Fuel                float64
	FuelCapacity        float64
	FuelConsumptionRate float64
	RadarRadius         float64
	// Kills lists enemies destroyed by this aircraft's missiles.
	Kills []string
	// LastFire is the simulated time of the last launch, -Inf before the first.
	LastFire float64
}

var _ Entity = (*Aircraft)(nil)

// NewAircraft creates an aircraft with full fuel and missiles.
func NewAircraft(name string, color core.Color, pose core.Pose, opts AircraftOptions) *Aircraft {
	a := &Aircraft{
		WorldObj:            newWorldObj(name, core.KindAircraft, color, pose),
		MissileCount:        opts.MissileCount,
		Fuel:                opts.FuelCapacity,
		FuelCapacity:        opts.FuelCapacity,
		FuelConsumptionRate: opts.FuelConsumptionRate,
		RadarRadius:         opts.RadarRadius,
		LastFire:            math.Inf(-1),
	}
	a.Speed = opts.Speed
	a.TurnRadius = opts.TurnRadius
	a.CollisionRadius = opts.CollisionRadius
	return a
}

// Update runs one tick: move, burn fuel, act on queued orders, check bounds.
func (a *Aircraft) Update(dt float64) {
	area, ok := a.resolve()
	if !ok || a.Destroyed {
		return
	}
	a.move(dt)

	a.Fuel -= a.FuelConsumptionRate * dt
	if a.Fuel <= 0 {
		a.destroy(area, ReasonFuelExhausted)
		return
	}

	for _, act := range a.actions.Drain() {
		a.consumed.Push(core.ConsumedAction{Time: area.time, Action: act})
		switch act.Kind {
		case core.ActionGoToLocation:
			a.GoToLocation(act.Target(), false)
		case core.ActionFireMissile:
			a.FireMissile(act.Target())
		case core.ActionGoHome:
			a.GoHome()
		}
	}

	a.checkBounds(area)
}

// GoToLocation plans a route to target. Unless force is set, a target
// within three ticks of travel of the current route's end is ignored.
func (a *Aircraft) GoToLocation(target core.XY, force bool) bool {
	area, ok := a.resolve()
	if !ok || a.Destroyed {
		return false
	}
	dt := area.opts.DeltaTime
	if !force && a.route != nil && a.route.Last().Point().Distance(target) < a.Speed*dt*3 {
		return false
	}
	path := geo.Plan(a.Pose, target, a.TurnRadius)
	if !path.Feasible() {
		return false
	}
	a.route = path.Sampler(a.Speed * dt)
	return true
}

// GoHome steers to the aircraft's own base.
func (a *Aircraft) GoHome() bool {
	area, ok := a.resolve()
	if !ok {
		return false
	}
	home, ok := area.Home(a.Color)
	if !ok {
		return false
	}
	return a.GoToLocation(home.Pose.Point(), true)
}

// FireMissile launches a missile at the living enemy aircraft nearest to
// target, provided one is within radar range of that point. It returns
// nil when no missile was launched.
func (a *Aircraft) FireMissile(target core.XY) *Missile {
	area, ok := a.resolve()
	if !ok || a.Destroyed || a.MissileCount <= 0 {
		return nil
	}

	var enemy *Aircraft
	best := math.Inf(1)
	for _, other := range area.AircraftList() {
		if other.Destroyed || other.Color == a.Color {
			continue
		}
		d := other.Pose.Point().Distance(target)
		// strict here, unlike InRadar: an enemy exactly at radar range of
		// the aim point is not engaged
		if d < a.RadarRadius && d < best {
			enemy, best = other, d
		}
	}
	if enemy == nil {
		return nil
	}

	a.MissileCount--
	name := area.uniqueName(fmt.Sprintf("%s_missile_%d", a.Name, a.MissileCount))
	m := NewMissile(name, a, enemy, area.time, area.opts.Missile)
	area.add(m)
	a.LastFire = area.time

	area.emit(core.FiredEvent{
		Time:    area.time,
		Tick:    area.tick,
		Shooter: a.Name,
		Missile: m.Name,
		Target:  enemy.Name,
		Color:   a.Color,
		Origin:  a.Pose,
		Aim:     target,
	})
	area.log.Debug("missile fired", "shooter", a.Name, "missile", m.Name, "target", enemy.Name)
	return m
}

// OnCollision destroys the aircraft when it hits another aircraft or an
// enemy missile.
func (a *Aircraft) OnCollision(other Entity) {
	if a.Destroyed {
		return
	}
	area, _ := a.area.Resolve()
	switch o := other.(type) {
	case *Aircraft:
		a.destroy(area, ReasonCollision)
	case *Missile:
		if o.Color != a.Color {
			a.destroy(area, "hit by "+o.Name)
		}
	}
}

// InRadar reports whether p is within radar range.
func (a *Aircraft) InRadar(p core.XY) bool {
	return a.Pose.Point().Distance(p) <= a.RadarRadius
}

// PredictMissileIntercept predicts where a missile launched now would meet target.
func (a *Aircraft) PredictMissileIntercept(target *Aircraft) (geo.Intercept, bool) {
	area, ok := a.area.Resolve()
	if !ok {
		return geo.Intercept{}, false
	}
	m := area.opts.Missile
	return geo.Predict(target.Pose, target.Speed, m.Speed, geo.PathLengthFrom(a.Pose, m.TurnRadius))
}

// PredictAircraftIntercept predicts where this aircraft could meet target.
func (a *Aircraft) PredictAircraftIntercept(target *Aircraft) (geo.Intercept, bool) {
	return geo.Predict(target.Pose, target.Speed, a.Speed, geo.PathLengthFrom(a.Pose, a.TurnRadius))
}

// Probe is the result of trying one relative heading.
type Probe struct {
	Angle  float64   // relative to the current heading, degrees
	Target core.XY   // point lookahead meters away along that heading
	Next   core.Pose // pose after one tick toward Target
}

// ProbeMoves tries each relative heading without changing any state.
func (a *Aircraft) ProbeMoves(angles []float64, lookahead float64) []Probe {
	area, ok := a.area.Resolve()
	if !ok {
		return nil
	}
	step := a.Speed * area.opts.DeltaTime
	out := make([]Probe, 0, len(angles))
	for _, ang := range angles {
		dir := core.Pose{X: a.Pose.X, Y: a.Pose.Y, Heading: a.Pose.Heading + ang}
		target := dir.Forward(lookahead).Point()
		path := geo.Plan(a.Pose, target, a.TurnRadius)
		if !path.Feasible() {
			continue
		}
		out = append(out, Probe{Angle: ang, Target: target, Next: path.At(step)})
	}
	return out
}

// State snapshots the aircraft.
func (a *Aircraft) State() core.EntityState {
	s := a.baseState()
	s.Fuel = a.Fuel
	s.MissileCount = a.MissileCount
	s.RadarRadius = a.RadarRadius
	s.Kills = slices.Clone(a.Kills)
	if !math.IsInf(a.LastFire, -1) {
		s.LastFire = a.LastFire
	}
	return s
}

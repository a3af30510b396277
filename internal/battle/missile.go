package battle

import (
	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
)

// Missile homes on a target aircraft, replanning its path periodically.
// Source and target are kept by name and looked up through the area.
type Missile struct {
	WorldObj

	Source              string
	Target              string
	FireTime            float64
	Origin              core.XY
	Fuel                float64
	FuelConsumptionRate float64
	RerouteInterval     float64

	lastRoute float64
	routed    bool
}

var _ Entity = (*Missile)(nil)

// NewMissile creates a missile at the source's pose and side.
func NewMissile(name string, source, target *Aircraft, now float64, opts MissileOptions) *Missile {
	m := &Missile{
		WorldObj:            newWorldObj(name, core.KindMissile, source.Color, source.Pose),
		Source:              source.Name,
		Target:              target.Name,
		FireTime:            now,
		Origin:              source.Pose.Point(),
		Fuel:                opts.FuelCapacity,
		FuelConsumptionRate: opts.FuelConsumptionRate,
		RerouteInterval:     opts.RerouteInterval,
	}
	m.Speed = opts.Speed
	m.TurnRadius = opts.TurnRadius
	m.CollisionRadius = opts.CollisionRadius
	return m
}

// Update runs one tick. A destroyed missile asks the area to remove it.
func (m *Missile) Update(dt float64) {
	area, ok := m.resolve()
	if !ok {
		return
	}
	if m.Destroyed {
		area.scheduleRemoval(m.Name)
		return
	}

	m.Fuel -= m.FuelConsumptionRate * dt
	if m.Fuel <= 0 {
		m.destroy(area, ReasonFuelExhausted)
		return
	}

	if !m.routed || area.time-m.lastRoute >= m.RerouteInterval {
		m.reroute(area, dt)
	}
	m.move(dt)
	m.checkBounds(area)
}

// reroute plans toward the target's current position, keeping the old
// route when the target is gone or unreachable.
func (m *Missile) reroute(area *BattleArea, dt float64) {
	m.routed = true
	m.lastRoute = area.time
	target, ok := area.Get(m.Target)
	if !ok {
		return
	}
	path := geo.Plan(m.Pose, target.Object().Pose.Point(), m.TurnRadius)
	if !path.Feasible() {
		return
	}
	m.route = path.Sampler(m.Speed * dt)
}

// OnCollision detonates on an enemy aircraft and credits the kill to the
// launching aircraft if it is still in the area.
func (m *Missile) OnCollision(other Entity) {
	if m.Destroyed {
		return
	}
	victim, ok := other.(*Aircraft)
	if !ok || victim.Color == m.Color {
		return
	}
	area, _ := m.area.Resolve()
	m.destroy(area, "hit "+victim.Name)
	if area == nil {
		return
	}
	if src, ok := area.Aircraft(m.Source); ok {
		src.Kills = append(src.Kills, victim.Name)
	}
	area.emit(core.KillEvent{
		Time:     area.time,
		Tick:     area.tick,
		Killer:   m.Source,
		Victim:   victim.Name,
		Missile:  m.Name,
		Position: victim.Pose.Point(),
		Distance: m.Origin.Distance(victim.Pose.Point()),
	})
}

// PredictIntercept predicts where this missile would meet target.
func (m *Missile) PredictIntercept(target *Aircraft) (geo.Intercept, bool) {
	return geo.Predict(target.Pose, target.Speed, m.Speed, geo.PathLengthFrom(m.Pose, m.TurnRadius))
}

// State snapshots the missile.
func (m *Missile) State() core.EntityState {
	s := m.baseState()
	s.Fuel = m.Fuel
	s.Source = m.Source
	s.Target = m.Target
	s.FireTime = m.FireTime
	return s
}

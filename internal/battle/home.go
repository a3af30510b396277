package battle

import "github.com/skyduel/dogfight/pkg/core"

// HomeBase refuels and rearms friendly aircraft inside its radius and,
// when configured, destroys enemies that fly in.
type HomeBase struct {
	WorldObj
	Radius float64
}

var _ Entity = (*HomeBase)(nil)

// NewHomeBase creates a base. Bases never collide.
func NewHomeBase(name string, color core.Color, pos core.XY, radius float64) *HomeBase {
	return &HomeBase{
		WorldObj: newWorldObj(name, core.KindHome, color, core.Pose{X: pos.X, Y: pos.Y}),
		Radius:   radius,
	}
}

func (h *HomeBase) Update(float64) {
	area, ok := h.resolve()
	if !ok {
		return
	}
	opts := area.opts
	for _, ac := range area.AircraftList() {
		if ac.Destroyed || !h.Covers(ac.Pose.Point()) {
			continue
		}
		if ac.Color != h.Color {
			if opts.Home.Attack {
				ac.destroy(area, ReasonEnemyBase)
			}
			continue
		}
		if opts.Home.Refuel && ac.Fuel < opts.Home.RefuelThreshold*ac.FuelCapacity {
			ac.Fuel = ac.FuelCapacity
		}
		if opts.Home.Replenish && ac.MissileCount < opts.Home.ReplenishThreshold {
			ac.MissileCount = opts.Aircraft.MissileCount
		}
	}
}

// Covers reports whether p is inside the base's radius.
func (h *HomeBase) Covers(p core.XY) bool {
	return h.Pose.Point().Distance(p) < h.Radius
}

func (h *HomeBase) OnCollision(Entity) {}

func (h *HomeBase) State() core.EntityState {
	s := h.baseState()
	s.Radius = h.Radius
	return s
}

// BullseyeName is the reserved name of the reference point.
const BullseyeName = "bullseye"

// Bullseye is a fixed reference point for relative position reports.
type Bullseye struct {
	WorldObj
}

var _ Entity = (*Bullseye)(nil)

func NewBullseye(pos core.XY) *Bullseye {
	return &Bullseye{WorldObj: newWorldObj(BullseyeName, core.KindBullseye, core.Red, core.Pose{X: pos.X, Y: pos.Y})}
}

func (b *Bullseye) Update(float64) {}

func (b *Bullseye) OnCollision(Entity) {}

func (b *Bullseye) State() core.EntityState { return b.baseState() }

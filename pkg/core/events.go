// pkg/core/events.go
package core

// Event is something that happened during a tick. It is one of
// FiredEvent, KillEvent or DestroyedEvent.
type Event interface {
	EventTime() float64
}

// FiredEvent is a missile leaving an aircraft.
type FiredEvent struct {
	Time    float64 `json:"time"`
	Tick    uint    `json:"tick"`
	Shooter string  `json:"shooter"`
	Missile string  `json:"missile"`
	Target  string  `json:"target"`
	Color   Color   `json:"color"`
	Origin  Pose    `json:"origin"`
	Aim     XY      `json:"aim"`
}

// KillEvent credits a destroyed aircraft to the aircraft whose missile hit it.
type KillEvent struct {
	Time     float64 `json:"time"`
	Tick     uint    `json:"tick"`
	Killer   string  `json:"killer"`
	Victim   string  `json:"victim"`
	Missile  string  `json:"missile"`
	Position XY      `json:"position"`
	Distance float64 `json:"distance"` // from the missile's launch point
}

// DestroyedEvent is any entity transitioning to destroyed.
type DestroyedEvent struct {
	Time     float64 `json:"time"`
	Tick     uint    `json:"tick"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Color    Color   `json:"color"`
	Reason   string  `json:"reason"`
	Position XY      `json:"position"`
}

func (e FiredEvent) EventTime() float64     { return e.Time }
func (e KillEvent) EventTime() float64      { return e.Time }
func (e DestroyedEvent) EventTime() float64 { return e.Time }

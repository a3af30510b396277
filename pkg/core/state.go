// pkg/core/state.go
package core

// EntityState is a read-only snapshot of one entity, as consumed by
// observers, renderers and recorders.
type EntityState struct {
	Name            string  `json:"name"`
	Kind            Kind    `json:"kind"`
	Color           Color   `json:"color"`
	Pose            Pose    `json:"pose"`
	Speed           float64 `json:"speed"`
	TurnRadius      float64 `json:"turnRadius"`
	CollisionRadius float64 `json:"collisionRadius"`
	Destroyed       bool    `json:"destroyed"`
	DestroyedReason string  `json:"destroyedReason,omitempty"`

	// Remaining samples of the active route, 0 when flying straight.
	RouteSamples int  `json:"routeSamples"`
	Route        []XY `json:"route,omitempty"`

	Fuel         float64 `json:"fuel,omitempty"`
	MissileCount int     `json:"missileCount,omitempty"`
	RadarRadius  float64 `json:"radarRadius,omitempty"`
	Radius       float64 `json:"radius,omitempty"`

	// Aircraft only.
	Kills    []string `json:"kills,omitempty"`
	LastFire float64  `json:"lastFire,omitempty"`

	// Missile only.
	Source   string  `json:"source,omitempty"`
	Target   string  `json:"target,omitempty"`
	FireTime float64 `json:"fireTime,omitempty"`
}

// EntityInfo registers an entity with a recorder the first time it appears.
type EntityInfo struct {
	Name  string  `json:"name"`
	Kind  Kind    `json:"kind"`
	Color Color   `json:"color"`
	Time  float64 `json:"time"`
	Tick  uint    `json:"tick"`
}

// Frame is the state of every entity at one recorded tick.
type Frame struct {
	Tick   uint          `json:"tick"`
	Time   float64       `json:"time"`
	States []EntityState `json:"states"`
}

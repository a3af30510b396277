package battle

import (
	"errors"
	"fmt"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
)

// AircraftOptions are the per-aircraft performance figures.
type AircraftOptions struct {
	Speed               float64 `json:"speed"`
	TurnRadius          float64 `json:"turnRadius"`
	FuelCapacity        float64 `json:"fuelCapacity"`
	FuelConsumptionRate float64 `json:"fuelConsumptionRate"`
	RadarRadius         float64 `json:"radarRadius"`
	MissileCount        int     `json:"missileCount"`
	CollisionRadius     float64 `json:"collisionRadius"`
	FireInterval        float64 `json:"fireInterval"`
}

// MissileOptions are the per-missile performance figures.
type MissileOptions struct {
	Speed               float64 `json:"speed"`
	TurnRadius          float64 `json:"turnRadius"`
	FuelCapacity        float64 `json:"fuelCapacity"`
	FuelConsumptionRate float64 `json:"fuelConsumptionRate"`
	CollisionRadius     float64 `json:"collisionRadius"`
	RerouteInterval     float64 `json:"rerouteInterval"`
}

// HomeOptions control what a base does for aircraft inside its radius.
type HomeOptions struct {
	Radius             float64 `json:"radius"`
	SpawnRadius        float64 `json:"spawnRadius"`
	Refuel             bool    `json:"refuel"`
	RefuelThreshold    float64 `json:"refuelThreshold"` // fraction of fuel capacity
	Replenish          bool    `json:"replenish"`
	ReplenishThreshold int     `json:"replenishThreshold"`
	Attack             bool    `json:"attack"`
}

// SideOptions describe one side's roster.
type SideOptions struct {
	HomeName  string   `json:"homeName"`
	Callsigns []string `json:"callsigns"`
	// HomePosition pins the base; nil uses the default layout.
	HomePosition *core.XY `json:"homePosition,omitempty"`
}

// Options are the read-only parameters of an episode.
type Options struct {
	Width                 float64 `json:"width"`
	Height                float64 `json:"height"`
	DeltaTime             float64 `json:"deltaTime"`
	MaxDuration           float64 `json:"maxDuration"`
	DestroyOnBoundaryExit bool    `json:"destroyOnBoundaryExit"`
	Seed                  uint64  `json:"seed"`

	Sides    [2]SideOptions  `json:"sides"` // indexed by core.Color
	Aircraft AircraftOptions `json:"aircraft"`
	Missile  MissileOptions  `json:"missile"`
	Home     HomeOptions     `json:"home"`
	Bullseye core.XY         `json:"bullseye"`

	// Spawns pins the initial pose of individual callsigns.
	Spawns map[string]core.Pose `json:"spawns,omitempty"`
}

// DefaultOptions returns a one-versus-one setup.
func DefaultOptions() Options {
	return Options{
		Width:                 100000,
		Height:                100000,
		DeltaTime:             0.1,
		MaxDuration:           30 * 60,
		DestroyOnBoundaryExit: true,
		Seed:                  1,
		Sides: [2]SideOptions{
			core.Red:  {HomeName: "red_home", Callsigns: []string{"red_1"}},
			core.Blue: {HomeName: "blue_home", Callsigns: []string{"blue_1"}},
		},
		Aircraft: AircraftOptions{
			Speed:               200,
			TurnRadius:          1500,
			FuelCapacity:        3600,
			FuelConsumptionRate: 1,
			RadarRadius:         20000,
			MissileCount:        4,
			CollisionRadius:     100,
			FireInterval:        10,
		},
		Missile: MissileOptions{
			Speed:               600,
			TurnRadius:          800,
			FuelCapacity:        60,
			FuelConsumptionRate: 1,
			CollisionRadius:     100,
			RerouteInterval:     0.5,
		},
		Home: HomeOptions{
			Radius:             3000,
			SpawnRadius:        2000,
			Refuel:             true,
			RefuelThreshold:    0.5,
			Replenish:          true,
			ReplenishThreshold: 1,
			Attack:             false,
		},
	}
}

// Validate checks the invariants the simulation relies on.
func (o Options) Validate() error {
	var errs []error
	if o.Width <= 0 || o.Height <= 0 {
		errs = append(errs, fmt.Errorf("game size must be positive, got %vx%v", o.Width, o.Height))
	}
	if o.DeltaTime <= 0 {
		errs = append(errs, fmt.Errorf("delta time must be positive, got %v", o.DeltaTime))
	}
	if o.Aircraft.Speed < 0 || o.Missile.Speed < 0 {
		errs = append(errs, errors.New("speeds must not be negative"))
	}
	if o.Aircraft.CollisionRadius < 0 || o.Missile.CollisionRadius < 0 {
		errs = append(errs, errors.New("collision radii must not be negative"))
	}
	seen := make(map[string]bool)
	for _, c := range core.Colors {
		side := o.Sides[c]
		if side.HomeName == "" {
			errs = append(errs, fmt.Errorf("%s home name is empty", c))
		}
		if len(side.Callsigns) == 0 {
			errs = append(errs, fmt.Errorf("%s roster is empty", c))
		}
		for _, name := range append([]string{side.HomeName}, side.Callsigns...) {
			if name == "" {
				continue
			}
			if seen[name] {
				errs = append(errs, fmt.Errorf("duplicate entity name %q", name))
			}
			seen[name] = true
		}
	}
	if seen[BullseyeName] {
		errs = append(errs, fmt.Errorf("entity name %q is reserved", BullseyeName))
	}
	return errors.Join(errs...)
}

// Bounds returns the game rectangle.
func (o Options) Bounds() geo.Bounds { return geo.CenteredBounds(o.Width, o.Height) }

// HomeName returns the name of side c's base.
func (o Options) HomeName(c core.Color) string { return o.Sides[c].HomeName }

// MissileFlightDuration is how long a missile can fly before its fuel runs out.
func (o Options) MissileFlightDuration() float64 {
	if o.Missile.FuelConsumptionRate <= 0 {
		return o.Missile.FuelCapacity
	}
	return o.Missile.FuelCapacity / o.Missile.FuelConsumptionRate
}

// HomePosition returns where side c's base is placed on reset.
func (o Options) HomePosition(c core.Color) core.XY {
	if p := o.Sides[c].HomePosition; p != nil {
		return *p
	}
	x := o.Width * 0.35
	if c == core.Red {
		x = -x
	}
	return core.XY{X: x, Y: 0}
}

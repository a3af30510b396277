package battle

import (
	"math"
	"testing"

	"github.com/skyduel/dogfight/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset_PopulatesInOrder(t *testing.T) {
	a := newTestArea(t, testOptions())

	var names []string
	for _, e := range a.Entities() {
		names = append(names, e.Object().Name)
	}
	assert.Equal(t, []string{"red_home", "blue_home", BullseyeName, "red_1", "blue_1"}, names)
	assert.Equal(t, 0.0, a.Time())

	red := mustAircraft(t, a, "red_1")
	assert.Equal(t, core.Pose{X: 0, Y: -5000, Heading: 0}, red.Pose)
	assert.Equal(t, 4, red.MissileCount)
	assert.Equal(t, red.FuelCapacity, red.Fuel)
}

func TestReset_RandomSpawnNearHome(t *testing.T) {
	o := testOptions()
	o.Spawns = nil
	o.Sides[core.Red].Callsigns = []string{"r1", "r2", "r3"}
	a := newTestArea(t, o)

	home, ok := a.Home(core.Red)
	require.True(t, ok)
	for _, name := range o.Sides[core.Red].Callsigns {
		ac := mustAircraft(t, a, name)
		assert.LessOrEqual(t, ac.Pose.Distance(home.Pose), o.Home.SpawnRadius)
		assert.GreaterOrEqual(t, ac.Pose.Heading, 0.0)
		assert.Less(t, ac.Pose.Heading, 360.0)
	}
}

func TestReset_ClearsTimeAndMissiles(t *testing.T) {
	a := newTestArea(t, testOptions())
	require.NoError(t, a.PutAction("red_1", core.Fire(0, 3000)))
	a.Update()
	require.Len(t, a.Missiles(), 1)

	a.Reset()
	assert.Equal(t, 0.0, a.Time())
	assert.Equal(t, uint(0), a.Tick())
	assert.Empty(t, a.Missiles())
	assert.Empty(t, a.DrainEvents())
}

func TestUpdate_StraightFlightAndFuel(t *testing.T) {
	a := newTestArea(t, testOptions())
	red := mustAircraft(t, a, "red_1")

	a.Update()

	assert.InDelta(t, 0, red.Pose.X, 1e-9)
	assert.InDelta(t, -5000+200*0.1, red.Pose.Y, 1e-9)
	assert.InDelta(t, red.FuelCapacity-0.1, red.Fuel, 1e-9)
	assert.InDelta(t, 0.1, a.Time(), 1e-12)
	assert.Equal(t, uint(1), a.Tick())
}

func TestUpdate_FuelMonotonic(t *testing.T) {
	a := newTestArea(t, testOptions())
	red := mustAircraft(t, a, "red_1")

	prev := red.Fuel
	for i := 0; i < 50; i++ {
		a.Update()
		assert.Less(t, red.Fuel, prev)
		prev = red.Fuel
	}
}

func TestUpdate_FuelExhaustedSameTick(t *testing.T) {
	a := newTestArea(t, testOptions())
	red := mustAircraft(t, a, "red_1")
	red.Fuel = 0.05
	require.NoError(t, a.PutAction("red_1", core.GoTo(1000, 1000)))

	a.Update()

	assert.True(t, red.Destroyed)
	assert.Equal(t, ReasonFuelExhausted, red.DestroyedReason)
	assert.Len(t, red.PendingActions(), 1, "actions are not drained after fuel runs out")

	destroyed := eventsOf[core.DestroyedEvent](a.DrainEvents())
	require.Len(t, destroyed, 1)
	assert.Equal(t, "red_1", destroyed[0].Name)

	pose := red.Pose
	a.Update()
	assert.Equal(t, pose, red.Pose, "destroyed aircraft do not move")
}

func TestPutAction_Errors(t *testing.T) {
	a := newTestArea(t, testOptions())

	err := a.PutAction("ghost", core.GoHome())
	assert.ErrorIs(t, err, ErrUnknownEntity)

	err = a.PutAction("red_1", core.Action{Kind: core.ActionKind(42)})
	assert.ErrorIs(t, err, core.ErrInvalidAction)

	err = a.PutAction("red_1", core.GoTo(math.NaN(), 0))
	assert.ErrorIs(t, err, core.ErrInvalidAction)

	assert.NoError(t, a.PutAction("red_1", core.Action{Kind: core.ActionNone}))
	assert.Empty(t, mustAircraft(t, a, "red_1").PendingActions())
}

func TestPutAction_OverflowKeepsNewest(t *testing.T) {
	a := newTestArea(t, testOptions())
	for i := 1; i <= 11; i++ {
		require.NoError(t, a.PutAction("red_1", core.GoTo(float64(i), 0)))
	}

	pending := mustAircraft(t, a, "red_1").PendingActions()
	require.Len(t, pending, 10)
	for i, act := range pending {
		assert.Equal(t, float64(i+2), act.X)
	}
}

func TestUpdate_ActionHistory(t *testing.T) {
	a := newTestArea(t, testOptions())
	a.Update()
	require.NoError(t, a.PutAction("red_1", core.GoTo(2000, -5000)))
	require.NoError(t, a.PutAction("red_1", core.GoHome()))

	a.Update()

	red := mustAircraft(t, a, "red_1")
	history := red.ActionHistory()
	require.Len(t, history, 2)
	assert.InDelta(t, 0.1, history[0].Time, 1e-12)
	assert.Equal(t, core.ActionGoToLocation, history[0].Action.Kind)
	assert.Equal(t, core.ActionGoHome, history[1].Action.Kind)
	assert.Empty(t, red.PendingActions())
}

func TestGoToLocation(t *testing.T) {
	a := newTestArea(t, testOptions())
	red := mustAircraft(t, a, "red_1")
	target := core.XY{X: 6000, Y: -5000}

	require.NoError(t, a.PutAction("red_1", core.GoTo(target.X, target.Y)))
	a.Update()

	require.Greater(t, red.RouteSamples(), 0)
	route := red.Route()
	assert.Equal(t, target, route[len(route)-1].Point())

	// a target within three ticks of travel of the route end is ignored
	assert.False(t, red.GoToLocation(core.XY{X: 6000 + 50, Y: -5000}, false))
	assert.True(t, red.GoToLocation(core.XY{X: 6000 + 50, Y: -5000}, true))

	for i := 0; i < 10000 && red.RouteSamples() > 0; i++ {
		a.Update()
	}
	assert.InDelta(t, 6050, red.Pose.X, 1e-6)
	assert.InDelta(t, -5000, red.Pose.Y, 1e-6)

	// exhausted route reverts to straight flight
	heading := red.Pose.Heading
	before := red.Pose
	a.Update()
	assert.Equal(t, 0, red.RouteSamples())
	assert.InDelta(t, 20, before.Distance(red.Pose), 1e-9)
	assert.InDelta(t, heading, red.Pose.Heading, 1e-9)
}

func TestGoToLocation_CurrentPosition(t *testing.T) {
	o := testOptions()
	o.Aircraft.TurnRadius = 1500
	a := newTestArea(t, o)
	red := mustAircraft(t, a, "red_1")
	here := red.Pose

	require.True(t, red.GoToLocation(here.Point(), true))
	assert.Equal(t, 1, red.RouteSamples(), "no orbit back onto the start")
	assert.Equal(t, []core.Pose{here}, red.Route())

	a.Update()
	assert.Equal(t, here, red.Pose)
	assert.Equal(t, 0, red.RouteSamples())
}

func TestGoHome_UsesOwnBase(t *testing.T) {
	a := newTestArea(t, testOptions())
	blue := mustAircraft(t, a, "blue_1")

	require.True(t, blue.GoHome())
	route := blue.Route()
	require.NotEmpty(t, route)
	assert.Equal(t, core.XY{X: 40000, Y: 0}, route[len(route)-1].Point())
}

func TestBoundaryExit(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		o := testOptions()
		o.Width, o.Height = 20000, 20000
		o.DestroyOnBoundaryExit = enabled
		o.Sides[core.Red].HomePosition = &core.XY{X: -5000}
		o.Sides[core.Blue].HomePosition = &core.XY{X: 5000}
		o.Spawns["red_1"] = core.Pose{X: 9990, Y: 0, Heading: 90}
		a := newTestArea(t, o)
		red := mustAircraft(t, a, "red_1")

		a.Update()

		assert.Equal(t, enabled, red.Destroyed)
		if enabled {
			assert.Equal(t, ReasonOutOfBounds, red.DestroyedReason)
		}
	}
}

func TestStaleHandleDestroys(t *testing.T) {
	a := newTestArea(t, testOptions())
	old := mustAircraft(t, a, "red_1")

	a.Reset()
	old.Update(0.1)
	assert.True(t, old.Destroyed)
	assert.Equal(t, ReasonAreaUnavailable, old.DestroyedReason)

	fresh := mustAircraft(t, a, "red_1")
	assert.False(t, fresh.Destroyed)

	a.Close()
	fresh.Update(0.1)
	assert.True(t, fresh.Destroyed)
}

func TestAdd_DuplicateName(t *testing.T) {
	a := newTestArea(t, testOptions())
	err := a.Add(NewAircraft("red_1", core.Red, core.Pose{}, a.Options().Aircraft))
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestOptionsValidate(t *testing.T) {
	o := DefaultOptions()
	require.NoError(t, o.Validate())

	o.Sides[core.Blue].Callsigns = nil
	o.Sides[core.Red].Callsigns = []string{"red_home"}
	o.DeltaTime = 0
	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blue roster is empty")
	assert.Contains(t, err.Error(), "duplicate entity name")
	assert.Contains(t, err.Error(), "delta time")
}

func TestMissileFlightDuration(t *testing.T) {
	o := DefaultOptions()
	o.Missile.FuelCapacity = 30
	o.Missile.FuelConsumptionRate = 2
	assert.Equal(t, 15.0, o.MissileFlightDuration())
}

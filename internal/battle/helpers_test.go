package battle

import (
	"testing"

	"github.com/skyduel/dogfight/pkg/core"
	"github.com/stretchr/testify/require"
)

// testOptions places the bases far apart and pins both aircraft.
func testOptions() Options {
	o := DefaultOptions()
	o.Sides[core.Red].HomePosition = &core.XY{X: -40000, Y: 0}
	o.Sides[core.Blue].HomePosition = &core.XY{X: 40000, Y: 0}
	o.Spawns = map[string]core.Pose{
		"red_1":  {X: 0, Y: -5000, Heading: 0},
		"blue_1": {X: 0, Y: 3000, Heading: 0},
	}
	return o
}

func newTestArea(t *testing.T, o Options) *BattleArea {
	t.Helper()
	require.NoError(t, o.Validate())
	a := New(o, nil)
	a.Reset()
	return a
}

func mustAircraft(t *testing.T, a *BattleArea, name string) *Aircraft {
	t.Helper()
	ac, ok := a.Aircraft(name)
	require.True(t, ok, "aircraft %q not found", name)
	return ac
}

func runUntilDecided(a *BattleArea, maxTicks int) core.Winner {
	for i := 0; i < maxTicks; i++ {
		if w := a.Winner(); w.Decided() {
			return w
		}
		a.Update()
	}
	return a.Winner()
}

func eventsOf[T core.Event](events []core.Event) []T {
	var out []T
	for _, e := range events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

package geo

import (
	"math"

	"github.com/skyduel/dogfight/pkg/core"
)

// PathLengthFunc returns the pursuer's path length to a point from its
// current pose, +Inf when unreachable.
type PathLengthFunc func(core.XY) float64

// Intercept is a predicted rendezvous with a moving target.
type Intercept struct {
	Time  float64
	Point core.XY
}

const (
	interceptScanSteps  = 256
	interceptBisections = 60
	interceptMaxHorizon = 1e5
	// interceptTolerance is the accepted mismatch between path length and
	// pursuer travel, relative to the travel.
	interceptTolerance = 1e-6
)

// Predict finds the earliest time t at which a pursuer moving at
// pursuerSpeed along its planned path can meet a target flying straight
// from targetPose at targetSpeed, i.e. pathLen(target(t)) == pursuerSpeed*t.
// It returns false when no such time exists within the search horizon.
func Predict(target core.Pose, targetSpeed, pursuerSpeed float64, pathLen PathLengthFunc) (Intercept, bool) {
	if !(pursuerSpeed > 0) || pathLen == nil {
		return Intercept{}, false
	}
	here := target.Point()
	l0 := pathLen(here)
	if math.IsNaN(l0) {
		return Intercept{}, false
	}
	if targetSpeed == 0 {
		if math.IsInf(l0, 0) {
			return Intercept{}, false
		}
		return Intercept{Time: l0 / pursuerSpeed, Point: here}, true
	}
	if l0 == 0 {
		return Intercept{Time: 0, Point: here}, true
	}

	at := func(t float64) core.XY { return target.Forward(targetSpeed * t).Point() }
	// gap is the distance the pursuer is still short of the target at t.
	gap := func(t float64) float64 { return pathLen(at(t)) - pursuerSpeed*t }
	// short is the sign of gap; unreachable points count as short.
	short := func(g float64) bool { return math.IsNaN(g) || g > 0 }
	// pathLen jumps where the best path family changes, so a sign change
	// is only a solution when the gap really closes there.
	closes := func(t float64) bool {
		g := gap(t)
		return !math.IsNaN(g) && math.Abs(g) <= interceptTolerance*math.Max(1, pursuerSpeed*t)
	}

	base := 1.0
	if !math.IsInf(l0, 0) {
		base = l0 / pursuerSpeed
	}
	horizon := 64 * base
	if pursuerSpeed > targetSpeed {
		horizon = math.Max(horizon, 4*base*pursuerSpeed/(pursuerSpeed-targetSpeed))
	}
	horizon = math.Min(horizon, interceptMaxHorizon)
	h := horizon / interceptScanSteps

	lo, loShort := 0.0, true
	for k := 1; k <= interceptScanSteps; k++ {
		hi := float64(k) * h
		hiShort := short(gap(hi))
		if hiShort != loShort {
			a, b := lo, hi
			for i := 0; i < interceptBisections; i++ {
				mid := (a + b) / 2
				if short(gap(mid)) == loShort {
					a = mid
				} else {
					b = mid
				}
			}
			for _, t := range []float64{a, b} {
				if closes(t) {
					return Intercept{Time: t, Point: at(t)}, true
				}
			}
		}
		lo, loShort = hi, hiShort
	}
	return Intercept{}, false
}

// PathLengthFrom returns a PathLengthFunc that plans from start with the given turn radius.
func PathLengthFrom(start core.Pose, radius float64) PathLengthFunc {
	return func(p core.XY) float64 {
		return Plan(start, p, radius).Length
	}
}

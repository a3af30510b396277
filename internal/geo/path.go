package geo

import (
	"math"

	"github.com/skyduel/dogfight/pkg/core"
)

// SegmentType is the shape of one piece of a planned path.
type SegmentType uint8

const (
	// Left is a counter-clockwise arc at the minimum turn radius.
	Left SegmentType = iota
	// Right is a clockwise arc at the minimum turn radius.
	Right
	// Straight is a straight segment.
	Straight
)

func (s SegmentType) letter() byte {
	switch s {
	case Left:
		return 'L'
	case Right:
		return 'R'
	}
	return 'S'
}

// Segment is one arc or straight line of a path, measured in meters of arc length.
type Segment struct {
	Type   SegmentType
	Length float64
}

// PathSpec is a planned curvature-constrained path. Length is +Inf when
// no admissible path exists; such a path samples to nothing.
type PathSpec struct {
	Start    core.Pose
	End      core.Pose
	Radius   float64
	Segments []Segment
	Length   float64
}

// Feasible reports whether the path has a finite length.
func (p PathSpec) Feasible() bool {
	return !math.IsInf(p.Length, 0) && !math.IsNaN(p.Length)
}

// Family returns the segment letters of the path, e.g. "LS" or "RSL".
func (p PathSpec) Family() string {
	b := make([]byte, 0, len(p.Segments))
	for _, s := range p.Segments {
		b = append(b, s.Type.letter())
	}
	return string(b)
}

// reversals counts changes of turn direction, used to break ties.
func (p PathSpec) reversals() int {
	n := 0
	var last SegmentType = Straight
	for _, s := range p.Segments {
		if s.Type == Straight {
			continue
		}
		if last != Straight && s.Type != last {
			n++
		}
		last = s.Type
	}
	return n
}

// At returns the pose at arc length s along the path, clamped to [0, Length].
func (p PathSpec) At(s float64) core.Pose {
	if !p.Feasible() {
		return p.Start
	}
	if s >= p.Length {
		return p.End
	}
	x, y, th := p.Start.X, p.Start.Y, mathAngle(p.Start.Heading)
	for _, seg := range p.Segments {
		if s <= 0 {
			break
		}
		d := math.Min(s, seg.Length)
		x, y, th = advance(x, y, th, seg.Type, d, p.Radius)
		s -= d
	}
	return core.Pose{X: x, Y: y, Heading: headingOf(th)}
}

// Sample returns poses spaced step meters apart along the path. The last
// pose is always the path's end. Infeasible paths and non-positive steps
// yield nil.
func (p PathSpec) Sample(step float64) []core.Pose {
	s := p.Sampler(step)
	if s == nil {
		return nil
	}
	out := make([]core.Pose, 0, s.Len())
	for {
		pose, ok := s.Next()
		if !ok {
			return out
		}
		out = append(out, pose)
	}
}

// Sampler returns a lazy, restartable iterator over the same poses as Sample.
func (p PathSpec) Sampler(step float64) *Sampler {
	if !p.Feasible() || !(step > 0) || math.IsInf(step, 0) {
		return nil
	}
	n := int(math.Ceil(p.Length/step - 1e-9))
	if n < 1 {
		n = 1
	}
	return &Sampler{path: p, step: step, n: n}
}

// Plan computes the shortest path from start to a target point for an
// entity that cannot turn tighter than radius. The path is an arc followed
// by a tangent straight line (LS, RS) or, for targets close to the turning
// circles, two opposite arcs (LR, RL). A zero radius turns instantly.
func Plan(start core.Pose, target core.XY, radius float64) PathSpec {
	if !target.Finite() || !start.Point().Finite() || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return infeasible(start, radius)
	}
	if radius <= 0 {
		return straightTo(start, target)
	}
	if start.Point().Distance(target) < pointEpsilon {
		return stay(start, target, radius)
	}
	best := infeasible(start, radius)
	for _, left := range []bool{true, false} {
		if cand, ok := arcThenStraight(start, target, radius, left); ok {
			best = shorter(best, cand)
		}
	}
	for _, left := range []bool{true, false} {
		for _, cand := range twoArcs(start, target, radius, left) {
			best = shorter(best, cand)
		}
	}
	return best
}

// PlanPose computes the shortest path from start to target that also
// arrives with the target's heading (LSL, RSR, LSR and RSL families).
func PlanPose(start, target core.Pose, radius float64) PathSpec {
	if !target.Point().Finite() || !start.Point().Finite() || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return infeasible(start, radius)
	}
	if radius <= 0 {
		p := straightTo(start, target.Point())
		p.End = target
		return p
	}
	target.Heading = core.NormalizeHeading(target.Heading)

	dx, dy := target.X-start.X, target.Y-start.Y
	d := math.Hypot(dx, dy) / radius
	theta := mod2pi(math.Atan2(dy, dx))
	alpha := mod2pi(mathAngle(start.Heading) - theta)
	beta := mod2pi(mathAngle(target.Heading) - theta)

	best := infeasible(start, radius)
	for _, w := range dubinsWords {
		t, pl, q, ok := w.solve(alpha, beta, d)
		if !ok {
			continue
		}
		cand := PathSpec{
			Start:  start,
			End:    target,
			Radius: radius,
			Segments: []Segment{
				{Type: w.types[0], Length: t * radius},
				{Type: w.types[1], Length: pl * radius},
				{Type: w.types[2], Length: q * radius},
			},
		}
		cand.Length = cand.Segments[0].Length + cand.Segments[1].Length + cand.Segments[2].Length
		best = shorter(best, cand)
	}
	return best
}

const (
	tieEpsilon = 1e-9
	// pointEpsilon is the distance in meters below which a target counts
	// as reached.
	pointEpsilon = 1e-6
	// arcEpsilon is the turn in radians below which an arc counts as
	// none. acos near 1 loses half the float precision, so it is loose.
	arcEpsilon = 1e-6
)

func shorter(cur, cand PathSpec) PathSpec {
	if !cur.Feasible() {
		return cand
	}
	if cand.Length < cur.Length-tieEpsilon {
		return cand
	}
	if math.Abs(cand.Length-cur.Length) <= tieEpsilon && cand.reversals() < cur.reversals() {
		return cand
	}
	return cur
}

func infeasible(start core.Pose, radius float64) PathSpec {
	return PathSpec{Start: start, End: start, Radius: radius, Length: math.Inf(1)}
}

// stay is the zero-length path to a target under the start position.
func stay(start core.Pose, target core.XY, radius float64) PathSpec {
	return PathSpec{
		Start:    start,
		End:      core.Pose{X: target.X, Y: target.Y, Heading: start.Heading},
		Radius:   radius,
		Segments: []Segment{{Type: Straight}},
	}
}

func straightTo(start core.Pose, target core.XY) PathSpec {
	dist := start.Point().Distance(target)
	heading := start.Heading
	if dist > 0 {
		heading = start.BearingTo(target)
	}
	from := core.Pose{X: start.X, Y: start.Y, Heading: heading}
	return PathSpec{
		Start:    from,
		End:      core.Pose{X: target.X, Y: target.Y, Heading: heading},
		Segments: []Segment{{Type: Straight, Length: dist}},
		Length:   dist,
	}
}

// arcThenStraight builds the LS (left) or RS (right) path to a point.
// It fails when the target lies inside the turning circle.
func arcThenStraight(start core.Pose, target core.XY, r float64, left bool) (PathSpec, bool) {
	th := mathAngle(start.Heading)
	sign := 1.0
	if !left {
		sign = -1.0
	}
	cx := start.X - sign*r*math.Sin(th)
	cy := start.Y + sign*r*math.Cos(th)

	dx, dy := target.X-cx, target.Y-cy
	dist := math.Hypot(dx, dy)
	if dist < r-1e-9 {
		return PathSpec{}, false
	}
	dist = math.Max(dist, r)

	beta := math.Atan2(dy, dx)
	tangent := beta - sign*math.Acos(r/dist)
	startAngle := th - sign*math.Pi/2
	arc := wrapArc(sign * (tangent - startAngle))
	straight := math.Sqrt(math.Max(dist*dist-r*r, 0))

	typ := Left
	if !left {
		typ = Right
	}
	p := PathSpec{
		Start:  start,
		End:    core.Pose{X: target.X, Y: target.Y, Heading: headingOf(tangent + sign*math.Pi/2)},
		Radius: r,
		Segments: []Segment{
			{Type: typ, Length: arc * r},
			{Type: Straight, Length: straight},
		},
	}
	p.Length = p.Segments[0].Length + straight
	return p, true
}

// twoArcs builds the LR (left first) or RL paths to a point: a turn on the
// start circle, then the opposite turn on a circle tangent to it that
// passes through the target. There are up to two such second circles.
func twoArcs(start core.Pose, target core.XY, r float64, left bool) []PathSpec {
	th := mathAngle(start.Heading)
	sign := 1.0
	first, second := Left, Right
	if !left {
		sign = -1.0
		first, second = Right, Left
	}
	cx := start.X - sign*r*math.Sin(th)
	cy := start.Y + sign*r*math.Cos(th)

	dx, dy := target.X-cx, target.Y-cy
	dist := math.Hypot(dx, dy)
	if dist < r-1e-9 || dist > 3*r+1e-9 {
		return nil
	}
	dist = math.Min(math.Max(dist, r), 3*r)

	beta := math.Atan2(dy, dx)
	// angle at the first centre of the triangle (c1, c2, target) with
	// sides 2r, r and dist
	gamma := math.Acos(math.Max(-1, math.Min(1, (3*r*r+dist*dist)/(4*r*dist))))
	startAngle := th - sign*math.Pi/2

	out := make([]PathSpec, 0, 2)
	for _, phi := range []float64{beta + gamma, beta - gamma} {
		c2x, c2y := cx+2*r*math.Cos(phi), cy+2*r*math.Sin(phi)
		psi := math.Atan2(target.Y-c2y, target.X-c2x)
		arc1 := wrapArc(sign * (phi - startAngle))
		arc2 := wrapArc(-sign * (psi - (phi + math.Pi)))

		p := PathSpec{
			Start:  start,
			End:    core.Pose{X: target.X, Y: target.Y, Heading: headingOf(psi - sign*math.Pi/2)},
			Radius: r,
			Segments: []Segment{
				{Type: first, Length: arc1 * r},
				{Type: second, Length: arc2 * r},
			},
		}
		p.Length = p.Segments[0].Length + p.Segments[1].Length
		out = append(out, p)
	}
	return out
}

type dubinsWord struct {
	types [3]SegmentType
	solve func(alpha, beta, d float64) (t, p, q float64, ok bool)
}

// Same-direction words come first so ties prefer fewer reversals.
var dubinsWords = []dubinsWord{
	{types: [3]SegmentType{Left, Straight, Left}, solve: solveLSL},
	{types: [3]SegmentType{Right, Straight, Right}, solve: solveRSR},
	{types: [3]SegmentType{Left, Straight, Right}, solve: solveLSR},
	{types: [3]SegmentType{Right, Straight, Left}, solve: solveRSL},
}

func solveLSL(alpha, beta, d float64) (float64, float64, float64, bool) {
	sa, sb, ca, cb := math.Sin(alpha), math.Sin(beta), math.Cos(alpha), math.Cos(beta)
	pSq := 2 + d*d - 2*math.Cos(alpha-beta) + 2*d*(sa-sb)
	if pSq < 0 {
		return 0, 0, 0, false
	}
	tmp := math.Atan2(cb-ca, d+sa-sb)
	return wrapArc(tmp - alpha), math.Sqrt(pSq), wrapArc(beta - tmp), true
}

func solveRSR(alpha, beta, d float64) (float64, float64, float64, bool) {
	sa, sb, ca, cb := math.Sin(alpha), math.Sin(beta), math.Cos(alpha), math.Cos(beta)
	pSq := 2 + d*d - 2*math.Cos(alpha-beta) + 2*d*(sb-sa)
	if pSq < 0 {
		return 0, 0, 0, false
	}
	tmp := math.Atan2(ca-cb, d-sa+sb)
	return wrapArc(alpha - tmp), math.Sqrt(pSq), wrapArc(tmp - beta), true
}

func solveLSR(alpha, beta, d float64) (float64, float64, float64, bool) {
	sa, sb, ca, cb := math.Sin(alpha), math.Sin(beta), math.Cos(alpha), math.Cos(beta)
	pSq := -2 + d*d + 2*math.Cos(alpha-beta) + 2*d*(sa+sb)
	if pSq < 0 {
		return 0, 0, 0, false
	}
	p := math.Sqrt(pSq)
	tmp := math.Atan2(-ca-cb, d+sa+sb) - math.Atan2(-2, p)
	return wrapArc(tmp - alpha), p, wrapArc(tmp - beta), true
}

func solveRSL(alpha, beta, d float64) (float64, float64, float64, bool) {
	sa, sb, ca, cb := math.Sin(alpha), math.Sin(beta), math.Cos(alpha), math.Cos(beta)
	pSq := -2 + d*d + 2*math.Cos(alpha-beta) - 2*d*(sa+sb)
	if pSq < 0 {
		return 0, 0, 0, false
	}
	p := math.Sqrt(pSq)
	tmp := math.Atan2(ca+cb, d-sa-sb) - math.Atan2(2, p)
	return wrapArc(alpha - tmp), p, wrapArc(beta - tmp), true
}

// advance moves (x, y, th) by d meters along a segment of the given type.
// th is a math angle: radians, counter-clockwise from +X.
func advance(x, y, th float64, typ SegmentType, d, r float64) (float64, float64, float64) {
	switch typ {
	case Left:
		phi := d / r
		return x + r*(math.Sin(th+phi)-math.Sin(th)), y + r*(math.Cos(th)-math.Cos(th+phi)), th + phi
	case Right:
		phi := d / r
		return x + r*(math.Sin(th)-math.Sin(th-phi)), y + r*(math.Cos(th-phi)-math.Cos(th)), th - phi
	}
	return x + d*math.Cos(th), y + d*math.Sin(th), th
}

// mathAngle converts a compass heading in degrees to radians counter-clockwise from +X.
func mathAngle(heading float64) float64 {
	return (90 - heading) * math.Pi / 180
}

func headingOf(th float64) float64 {
	return core.NormalizeHeading(90 - th*180/math.Pi)
}

// wrapArc is mod2pi with turns of almost a full circle snapped to zero,
// so rounding noise never adds a spurious loop.
func wrapArc(a float64) float64 {
	a = mod2pi(a)
	if a > 2*math.Pi-arcEpsilon {
		return 0
	}
	return a
}

func mod2pi(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

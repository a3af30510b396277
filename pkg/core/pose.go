// pkg/core/pose.go
package core

import "math"

// XY is a point on the game plane, in meters.
type XY struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sub returns p - o.
func (p XY) Sub(o XY) XY { return XY{X: p.X - o.X, Y: p.Y - o.Y} }

// Add returns p + o.
func (p XY) Add(o XY) XY { return XY{X: p.X + o.X, Y: p.Y + o.Y} }

// Norm returns the length of p as a vector.
func (p XY) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Distance returns the straight-line distance between p and o.
func (p XY) Distance(o XY) float64 { return math.Hypot(p.X-o.X, p.Y-o.Y) }

// Finite reports whether both coordinates are finite numbers.
func (p XY) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Pose is a position plus heading.
//
// Heading is in degrees, 0 points along +Y ("north") and angles grow
// clockwise, so 90 points along +X.
type Pose struct {
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Heading float64 `json:"heading" yaml:"heading"`
}

// Point returns the position part of the pose.
func (p Pose) Point() XY { return XY{X: p.X, Y: p.Y} }

// Distance returns the straight-line distance between the two poses' positions.
func (p Pose) Distance(o Pose) float64 { return math.Hypot(p.X-o.X, p.Y-o.Y) }

// Forward returns the pose reached by moving dist meters along the current heading.
func (p Pose) Forward(dist float64) Pose {
	rad := p.Heading * math.Pi / 180
	return Pose{
		X:       p.X + dist*math.Sin(rad),
		Y:       p.Y + dist*math.Cos(rad),
		Heading: p.Heading,
	}
}

// BearingTo returns the heading that points from p to target.
func (p Pose) BearingTo(target XY) float64 {
	return NormalizeHeading(math.Atan2(target.X-p.X, target.Y-p.Y) * 180 / math.Pi)
}

// NormalizeHeading wraps a heading into [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

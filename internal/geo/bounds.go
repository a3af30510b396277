package geo

import "github.com/skyduel/dogfight/pkg/core"

// Bounds is an axis-aligned rectangle on the game plane.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// CenteredBounds returns a width x height rectangle centered on the origin.
func CenteredBounds(width, height float64) Bounds {
	return Bounds{MinX: -width / 2, MinY: -height / 2, MaxX: width / 2, MaxY: height / 2}
}

// Contains reports whether p lies inside the rectangle or on its edge.
func (b Bounds) Contains(p core.XY) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Clamp returns the point of the rectangle closest to p.
func (b Bounds) Clamp(p core.XY) core.XY {
	return core.XY{X: clamp(p.X, b.MinX, b.MaxX), Y: clamp(p.Y, b.MinY, b.MaxY)}
}

func (b Bounds) Width() float64  { return b.MaxX - b.MinX }
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

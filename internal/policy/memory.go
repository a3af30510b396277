package policy

import (
	"math"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
)

// PositionMemory counts visits per cell of a grid laid over the game
// rectangle so an explorer can head for the least-visited area.
type PositionMemory struct {
	bounds geo.Bounds
	sep    float64
	nx, ny int
	counts []int
}

// NewPositionMemory creates a grid with square cells of side sep.
// A non-positive sep yields a single cell.
func NewPositionMemory(bounds geo.Bounds, sep float64) *PositionMemory {
	m := &PositionMemory{bounds: bounds, sep: sep, nx: 1, ny: 1}
	if sep > 0 {
		m.nx = int(bounds.Width()/sep) + 1
		m.ny = int(bounds.Height()/sep) + 1
	} else {
		m.sep = math.Max(bounds.Width(), bounds.Height())
	}
	m.Reset()
	return m
}

// Reset forgets every visit.
func (m *PositionMemory) Reset() {
	m.counts = make([]int, m.nx*m.ny)
}

func (m *PositionMemory) index(p core.XY) int {
	p = m.bounds.Clamp(p)
	i := int((p.X - m.bounds.MinX) / m.sep)
	j := int((p.Y - m.bounds.MinY) / m.sep)
	return min(i, m.nx-1)*m.ny + min(j, m.ny-1)
}

// Add records a visit to the cell containing p. Points outside the
// rectangle count for the nearest edge cell.
func (m *PositionMemory) Add(p core.XY) {
	m.counts[m.index(p)]++
}

// Count returns the visits recorded for the cell containing p.
func (m *PositionMemory) Count(p core.XY) int {
	return m.counts[m.index(p)]
}

// Pick returns the centre of the least-visited cell, clamped to the
// rectangle. Ties go to the first cell scanning x, then y.
func (m *PositionMemory) Pick() core.XY {
	best := 0
	for k, c := range m.counts {
		if c < m.counts[best] {
			best = k
		}
	}
	i, j := best/m.ny, best%m.ny
	return m.bounds.Clamp(core.XY{
		X: m.bounds.MinX + (float64(i)+0.5)*m.sep,
		Y: m.bounds.MinY + (float64(j)+0.5)*m.sep,
	})
}

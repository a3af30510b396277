package policy

import (
	"testing"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestPositionMemory_PickLeastVisited(t *testing.T) {
	m := NewPositionMemory(geo.CenteredBounds(100, 100), 50)

	assert.Equal(t, core.XY{X: -25, Y: -25}, m.Pick(), "first cell wins ties")

	m.Add(core.XY{X: -40, Y: -40})
	assert.Equal(t, 1, m.Count(core.XY{X: -30, Y: -45}))
	assert.Equal(t, core.XY{X: -25, Y: 25}, m.Pick(), "scan moves along y first")
}

func TestPositionMemory_OutsidePointsClamp(t *testing.T) {
	m := NewPositionMemory(geo.CenteredBounds(100, 100), 50)

	m.Add(core.XY{X: 1000, Y: 1000})
	assert.Equal(t, 1, m.Count(core.XY{X: 50, Y: 50}))

	// visit every cell except the far corner
	for _, x := range []float64{-50, 0, 50} {
		for _, y := range []float64{-50, 0, 50} {
			if x == 50 && y == 50 {
				continue
			}
			m.Add(core.XY{X: x, Y: y})
			m.Add(core.XY{X: x, Y: y})
		}
	}
	assert.Equal(t, core.XY{X: 50, Y: 50}, m.Pick(), "centre of the edge cell is clamped")
}

func TestPositionMemory_Reset(t *testing.T) {
	m := NewPositionMemory(geo.CenteredBounds(100, 100), 50)
	m.Add(core.XY{})
	m.Reset()
	assert.Equal(t, 0, m.Count(core.XY{}))
}

func TestPositionMemory_NonPositiveSep(t *testing.T) {
	m := NewPositionMemory(geo.CenteredBounds(100, 100), 0)
	m.Add(core.XY{X: -50, Y: 50})
	assert.Equal(t, 1, m.Count(core.XY{X: 50, Y: -50}), "single cell")
	assert.Equal(t, core.XY{}, m.Pick())
}

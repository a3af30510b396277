package geo

import (
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/skyduel/dogfight/pkg/core"
)

// RouteLineString converts a route to a geom.LineString. Routes with fewer
// than two poses give an empty line.
func RouteLineString(poses []core.Pose) geom.LineString {
	if len(poses) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(poses)*2)
	for _, p := range poses {
		flat = append(flat, p.X, p.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// PathLineString samples a planned path into a line, starting at the path's start.
func PathLineString(p PathSpec, step float64) geom.LineString {
	samples := p.Sample(step)
	if len(samples) == 0 {
		return geom.LineString{}
	}
	return RouteLineString(append([]core.Pose{p.Start}, samples...))
}

package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/wroge/wgs84"
)

// GAME PLANE
// The simulation works in meters on a flat plane. For recordings the plane
// is anchored at a configured lon/lat origin: game (x, y) is an offset in
// EPSG:3857 meters from that origin.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PoseFromString parses "x,y" or "x,y,heading" into a pose.
func PoseFromString(coords string) (core.Pose, error) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Pose{}, ErrInvalidCoordinates
	}
	vals := make([]float64, len(parts))
	for i, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.Pose{}, ErrInvalidCoordinates
		}
		vals[i] = v
	}
	pose := core.Pose{X: vals[0], Y: vals[1]}
	if len(vals) == 3 {
		pose.Heading = core.NormalizeHeading(vals[2])
	}
	return pose, nil
}

// Projection maps game coordinates to WGS84.
type Projection struct {
	originX float64
	originY float64
}

// NewProjection anchors the game origin at the given longitude and latitude.
func NewProjection(longitude, latitude float64) Projection {
	x, y, _ := wgs84.EPSG().Transform(4326, 3857)(longitude, latitude, 0)
	return Projection{originX: x, originY: y}
}

// LonLat converts a game position to longitude and latitude.
func (p Projection) LonLat(pos core.XY) (lon, lat float64) {
	lon, lat, _ = wgs84.EPSG().Transform(3857, 4326)(p.originX+pos.X, p.originY+pos.Y, 0)
	return lon, lat
}

// Point3857 returns the game position as an EPSG:3857 point.
func (p Projection) Point3857(pos core.XY) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY: geom.XY{X: p.originX + pos.X, Y: p.originY + pos.Y},
	})
}

// BullseyeRelative returns the compass bearing (degrees) and range (meters)
// of pos as seen from the bullseye.
func BullseyeRelative(bullseye, pos core.XY) (bearing, rng float64) {
	from := core.Pose{X: bullseye.X, Y: bullseye.Y}
	return from.BearingTo(pos), bullseye.Distance(pos)
}

// RelativeBearing returns the angle from the observer's nose to target,
// in (-180, 180], positive to the right.
func RelativeBearing(observer core.Pose, target core.XY) float64 {
	d := observer.BearingTo(target) - observer.Heading
	for d > 180 {
		d -= 360
	}
	for d <= -180 {
		d += 360
	}
	return d
}

// LineString3857 projects a polyline to EPSG:3857. Fewer than two points
// give an empty line.
func (p Projection) LineString3857(pts []core.XY) geom.LineString {
	if len(pts) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(pts)*2)
	for _, pt := range pts {
		flat = append(flat, p.originX+pt.X, p.originY+pt.Y)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
}

// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/pkg/core"
	"gorm.io/datatypes"
)

// ObjectIDs resolves an entity name to the object ID assigned in the current episode.
type ObjectIDs func(name string) (uint16, bool)

// nullObjectID returns a NULL column for names that were never registered.
func nullObjectID(ids ObjectIDs, name string) sql.NullInt32 {
	if ids == nil || name == "" {
		return sql.NullInt32{}
	}
	id, ok := ids(name)
	if !ok {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(id), Valid: true}
}

// toJSON marshals v for a JSON column; unmarshalable values become "null".
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(data)
}

func lonLatPoint(lon, lat float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: lon, Y: lat}})
}

func clampUint8(v int) uint8 {
	return uint8(max(0, min(v, math.MaxUint8)))
}

// CoreToEpisode converts a core.Episode to a GORM model.Episode.
// The origin is the WGS84 lon/lat the game plane is anchored at.
func CoreToEpisode(ep core.Episode, tag string, lon, lat float64) model.Episode {
	callsigns := make(map[string][]string, len(ep.Callsigns))
	for c, names := range ep.Callsigns {
		callsigns[c.String()] = names
	}
	return model.Episode{
		Name:       ep.Name,
		StartTime:  ep.StartTime,
		Seed:       int64(ep.Seed),
		DeltaTime:  ep.DeltaTime,
		MaxTime:    ep.MaxTime,
		Width:      ep.Width,
		Height:     ep.Height,
		RunnerName: ep.RunnerName,
		Tag:        tag,
		Origin:     lonLatPoint(lon, lat),
		Callsigns:  toJSON(callsigns),
		Options:    toJSON(ep.Options),
	}
}

// CoreToEntity converts a core.EntityInfo to a GORM model.Entity.
func CoreToEntity(info core.EntityInfo, episodeID uint, objectID uint16) model.Entity {
	return model.Entity{
		EpisodeID: episodeID,
		ObjectID:  objectID,
		Name:      info.Name,
		Kind:      info.Kind.String(),
		Side:      info.Color.String(),
		JoinTick:  info.Tick,
		JoinTime:  info.Time,
	}
}

// CoreToEntityState converts one state of a frame to a GORM model.EntityState.
func CoreToEntityState(s core.EntityState, tick uint, t float64, objectID uint16, proj geo.Projection) model.EntityState {
	return model.EntityState{
		Tick:           tick,
		Time:           t,
		EntityObjectID: objectID,
		Position:       proj.Point3857(s.Pose.Point()),
		Heading:        float32(s.Pose.Heading),
		Speed:          float32(s.Speed),
		Fuel:           float32(s.Fuel),
		MissileCount:   clampUint8(s.MissileCount),
		Destroyed:      s.Destroyed,
		Route:          proj.LineString3857(s.Route),
	}
}

// CoreToFiredEvent converts a core.FiredEvent to a GORM model.FiredEvent.
func CoreToFiredEvent(e core.FiredEvent, ids ObjectIDs, proj geo.Projection) model.FiredEvent {
	return model.FiredEvent{
		Tick:            e.Tick,
		Time:            e.Time,
		ShooterObjectID: nullObjectID(ids, e.Shooter),
		MissileObjectID: nullObjectID(ids, e.Missile),
		Missile:         e.Missile,
		Target:          e.Target,
		Side:            e.Color.String(),
		Origin:          proj.Point3857(e.Origin.Point()),
		Heading:         float32(e.Origin.Heading),
		Aim:             proj.Point3857(e.Aim),
	}
}

// CoreToKillEvent converts a core.KillEvent to a GORM model.KillEvent.
func CoreToKillEvent(e core.KillEvent, ids ObjectIDs, proj geo.Projection) model.KillEvent {
	return model.KillEvent{
		Tick:           e.Tick,
		Time:           e.Time,
		VictimObjectID: nullObjectID(ids, e.Victim),
		KillerObjectID: nullObjectID(ids, e.Killer),
		Missile:        e.Missile,
		Position:       proj.Point3857(e.Position),
		Distance:       float32(e.Distance),
	}
}

// CoreToDestroyedEvent converts a core.DestroyedEvent to a GORM model.DestroyedEvent.
func CoreToDestroyedEvent(e core.DestroyedEvent, ids ObjectIDs, proj geo.Projection) model.DestroyedEvent {
	return model.DestroyedEvent{
		Tick:     e.Tick,
		Time:     e.Time,
		ObjectID: nullObjectID(ids, e.Name),
		Name:     e.Name,
		Kind:     e.Kind.String(),
		Side:     e.Color.String(),
		Reason:   e.Reason,
		Position: proj.Point3857(e.Position),
	}
}

// CoreToOutcome converts a core.Outcome to a GORM model.Outcome.
func CoreToOutcome(o core.Outcome) model.Outcome {
	return model.Outcome{
		EpisodeID:  o.EpisodeID,
		Winner:     string(o.Winner),
		Elapsed:    o.Elapsed,
		Ticks:      o.Ticks,
		Truncated:  o.Truncated,
		Remaining:  toJSON(o.Remaining),
		RewardRed:  o.Reward[core.Red],
		RewardBlue: o.Reward[core.Blue],
		EndTime:    o.EndTime,
	}
}

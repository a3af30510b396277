package v1

import (
	"sort"
	"time"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
)

// EpisodeData contains all the data needed to build an export
type EpisodeData struct {
	Episode    *core.Episode
	Outcome    *core.Outcome
	Tag        string
	Projection geo.Projection
	Origin     [2]float64 // lon, lat

	Entities map[string]*EntityRecord
	Times    []Time

	KillEvents      []core.KillEvent
	DestroyedEvents []core.DestroyedEvent
}

// EntityRecord groups an entity with all its time-series data
type EntityRecord struct {
	ID     uint16
	Info   core.EntityInfo
	States []TickState
	Fired  []core.FiredEvent
}

// TickState is an entity state captured at a tick
type TickState struct {
	Tick  uint
	State core.EntityState
}

// Build creates an Export from the episode data
func Build(data *EpisodeData) Export {
	export := Export{
		Version:     FormatVersion,
		EpisodeName: data.Episode.Name,
		Runner:      data.Episode.RunnerName,
		Tags:        data.Tag,
		StartTime:   data.Episode.StartTime.UTC().Format(time.RFC3339),
		Seed:        data.Episode.Seed,
		DeltaTime:   data.Episode.DeltaTime,
		Width:       data.Episode.Width,
		Height:      data.Episode.Height,
		Origin:      []float64{data.Origin[0], data.Origin[1]},
		Times:       append(make([]Time, 0, len(data.Times)), data.Times...),
		Entities:    make([]Entity, 0),
		Events:      make([][]any, 0),
	}

	var maxFrame int
	for _, t := range data.Times {
		maxFrame = max(maxFrame, t.FrameNum)
	}

	// The frontend looks entities up as entities[id], so the array index
	// must equal the entity ID
	var maxEntityID uint16
	for _, record := range data.Entities {
		maxEntityID = max(maxEntityID, record.ID)
	}
	if len(data.Entities) > 0 {
		export.Entities = make([]Entity, maxEntityID+1)
	}

	for _, record := range data.Entities {
		entity := Entity{
			ID:            record.ID,
			Name:          record.Info.Name,
			Side:          record.Info.Color.String(),
			Type:          record.Info.Kind.String(),
			StartFrameNum: int(record.Info.Tick),
			Positions:     make([][]any, 0, len(record.States)),
			FramesFired:   make([][]any, 0, len(record.Fired)),
		}

		for _, ts := range record.States {
			entity.Positions = append(entity.Positions, position(data.Projection, ts))
			maxFrame = max(maxFrame, int(ts.Tick))
		}

		// [frameNum, [x, y], [aimX, aimY], missile]
		for _, fired := range record.Fired {
			entity.FramesFired = append(entity.FramesFired, []any{
				fired.Tick,
				[]float64{fired.Origin.X, fired.Origin.Y},
				[]float64{fired.Aim.X, fired.Aim.Y},
				fired.Missile,
			})
		}

		export.Entities[record.ID] = entity
	}

	export.EndFrame = maxFrame

	id := func(name string) int {
		if r, ok := data.Entities[name]; ok {
			return int(r.ID)
		}
		return -1
	}

	// Format: [frameNum, "fired", shooterId, missileId, targetName]
	for _, record := range data.Entities {
		for _, fired := range record.Fired {
			export.Events = append(export.Events, []any{
				fired.Tick,
				"fired",
				id(fired.Shooter),
				id(fired.Missile),
				fired.Target,
			})
		}
	}

	// Format: [frameNum, "killed", victimId, [killerId, missile], distance]
	for _, evt := range data.KillEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			"killed",
			id(evt.Victim),
			[]any{id(evt.Killer), evt.Missile},
			evt.Distance,
		})
	}

	// Format: [frameNum, "destroyed", entityId, reason]
	for _, evt := range data.DestroyedEvents {
		export.Events = append(export.Events, []any{
			evt.Tick,
			"destroyed",
			id(evt.Name),
			evt.Reason,
		})
	}

	if data.Outcome != nil {
		export.Winner = string(data.Outcome.Winner)
		export.Elapsed = data.Outcome.Elapsed
		export.Truncated = data.Outcome.Truncated
		export.EndFrame = max(export.EndFrame, int(data.Outcome.Ticks))
		export.Events = append(export.Events, []any{
			data.Outcome.Ticks,
			"endEpisode",
			[]any{winnerText(data.Outcome.Winner), data.Outcome.Elapsed},
		})
	}

	sort.SliceStable(export.Events, func(i, j int) bool {
		return frameOf(export.Events[i]) < frameOf(export.Events[j])
	})

	return export
}

// position encodes one state as
// [[x, y], [lon, lat], heading, alive, fuel, missiles, routeWKT]
func position(proj geo.Projection, ts TickState) []any {
	s := ts.State
	lon, lat := proj.LonLat(s.Pose.Point())
	route := ""
	if len(s.Route) > 1 {
		poses := make([]core.Pose, len(s.Route))
		for i, p := range s.Route {
			poses[i] = core.Pose{X: p.X, Y: p.Y}
		}
		route = geo.RouteLineString(poses).AsText()
	}
	return []any{
		[]float64{s.Pose.X, s.Pose.Y},
		[]float64{lon, lat},
		s.Pose.Heading,
		boolToInt(!s.Destroyed),
		s.Fuel,
		s.MissileCount,
		route,
	}
}

func frameOf(evt []any) uint {
	if f, ok := evt[0].(uint); ok {
		return f
	}
	return 0
}

func winnerText(w core.Winner) string {
	if w == core.Undecided {
		return "undecided"
	}
	return string(w)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

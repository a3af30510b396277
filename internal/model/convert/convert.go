package convert

import (
	"encoding/json"

	"github.com/skyduel/dogfight/internal/model"
	"github.com/skyduel/dogfight/pkg/core"
)

// EpisodeToCore converts a GORM model.Episode back to a core.Episode.
// The options snapshot and the roster are decoded on a best-effort basis.
func EpisodeToCore(m model.Episode) core.Episode {
	ep := core.Episode{
		ID:         m.ID,
		Name:       m.Name,
		StartTime:  m.StartTime,
		Seed:       uint64(m.Seed),
		DeltaTime:  m.DeltaTime,
		MaxTime:    m.MaxTime,
		Width:      m.Width,
		Height:     m.Height,
		RunnerName: m.RunnerName,
	}

	var callsigns map[string][]string
	if len(m.Callsigns) > 0 && json.Unmarshal(m.Callsigns, &callsigns) == nil {
		ep.Callsigns = make(map[core.Color][]string, len(callsigns))
		for side, names := range callsigns {
			if c, err := core.ParseColor(side); err == nil {
				ep.Callsigns[c] = names
			}
		}
	}
	if len(m.Options) > 0 {
		_ = json.Unmarshal(m.Options, &ep.Options)
	}
	return ep
}

// EntityToCore converts a GORM model.Entity to a core.EntityInfo.
// Unknown kinds or sides leave the zero value.
func EntityToCore(m model.Entity) core.EntityInfo {
	info := core.EntityInfo{
		Name: m.Name,
		Time: m.JoinTime,
		Tick: m.JoinTick,
	}
	_ = info.Kind.UnmarshalText([]byte(m.Kind))
	if c, err := core.ParseColor(m.Side); err == nil {
		info.Color = c
	}
	return info
}

// OutcomeToCore converts a GORM model.Outcome to a core.Outcome.
func OutcomeToCore(m model.Outcome) core.Outcome {
	out := core.Outcome{
		EpisodeID: m.EpisodeID,
		Winner:    core.Winner(m.Winner),
		Elapsed:   m.Elapsed,
		Ticks:     m.Ticks,
		Truncated: m.Truncated,
		EndTime:   m.EndTime,
	}
	out.Reward[core.Red] = m.RewardRed
	out.Reward[core.Blue] = m.RewardBlue
	if len(m.Remaining) > 0 {
		_ = json.Unmarshal(m.Remaining, &out.Remaining)
	}
	return out
}

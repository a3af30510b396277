package v1

import (
	"strings"
	"testing"
	"time"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}

func TestWinnerText(t *testing.T) {
	tests := []struct {
		winner   core.Winner
		expected string
	}{
		{core.Undecided, "undecided"},
		{core.RedWins, "red"},
		{core.BlueWins, "blue"},
		{core.Draw, "draw"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, winnerText(tt.winner))
		})
	}
}

func testData() *EpisodeData {
	return &EpisodeData{
		Episode: &core.Episode{
			Name:      "ep",
			StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
			Seed:      3,
			DeltaTime: 0.1,
		},
		Projection: geo.NewProjection(0, 0),
		Entities:   map[string]*EntityRecord{},
	}
}

func TestBuildEmptyEpisode(t *testing.T) {
	export := Build(testData())

	assert.Equal(t, FormatVersion, export.Version)
	assert.Equal(t, "ep", export.EpisodeName)
	assert.Equal(t, "2026-01-02T03:04:05Z", export.StartTime)
	assert.Equal(t, uint64(3), export.Seed)
	assert.NotNil(t, export.Entities)
	assert.Empty(t, export.Entities)
	assert.NotNil(t, export.Events)
	assert.Empty(t, export.Events)
	assert.Equal(t, 0, export.EndFrame)
	assert.Equal(t, "", export.Winner)
}

func TestBuild_EntitiesIndexedByID(t *testing.T) {
	data := testData()
	data.Entities["blue_1"] = &EntityRecord{ID: 2, Info: core.EntityInfo{Name: "blue_1", Kind: core.KindAircraft, Color: core.Blue}}
	data.Entities["red_1"] = &EntityRecord{ID: 0, Info: core.EntityInfo{Name: "red_1", Kind: core.KindAircraft, Color: core.Red, Tick: 5}}

	export := Build(data)

	require.Len(t, export.Entities, 3)
	assert.Equal(t, "red_1", export.Entities[0].Name)
	assert.Equal(t, "red", export.Entities[0].Side)
	assert.Equal(t, "aircraft", export.Entities[0].Type)
	assert.Equal(t, 5, export.Entities[0].StartFrameNum)
	assert.Equal(t, "", export.Entities[1].Name, "gap stays a placeholder")
	assert.Equal(t, "blue_1", export.Entities[2].Name)
}

func TestBuild_Positions(t *testing.T) {
	data := testData()
	data.Entities["red_1"] = &EntityRecord{
		ID:   0,
		Info: core.EntityInfo{Name: "red_1", Kind: core.KindAircraft},
		States: []TickState{
			{Tick: 10, State: core.EntityState{
				Name:         "red_1",
				Pose:         core.Pose{X: 100, Y: 200, Heading: 90},
				Fuel:         50,
				MissileCount: 2,
				Route:        []core.XY{{X: 100, Y: 200}, {X: 300, Y: 200}},
			}},
			{Tick: 20, State: core.EntityState{Name: "red_1", Destroyed: true}},
		},
	}

	export := Build(data)
	positions := export.Entities[0].Positions
	require.Len(t, positions, 2)

	first := positions[0]
	assert.Equal(t, []float64{100, 200}, first[0])
	lonlat := first[1].([]float64)
	assert.Greater(t, lonlat[0], 0.0)
	assert.Greater(t, lonlat[1], 0.0)
	assert.Equal(t, 90.0, first[2])
	assert.Equal(t, 1, first[3])
	assert.Equal(t, 50.0, first[4])
	assert.Equal(t, 2, first[5])
	assert.True(t, strings.HasPrefix(first[6].(string), "LINESTRING"))

	second := positions[1]
	assert.Equal(t, 0, second[3])
	assert.Equal(t, "", second[6])

	assert.Equal(t, 20, export.EndFrame)
}

func TestBuild_Events(t *testing.T) {
	data := testData()
	data.Entities["red_1"] = &EntityRecord{
		ID:   0,
		Info: core.EntityInfo{Name: "red_1"},
		Fired: []core.FiredEvent{{
			Tick:    3,
			Shooter: "red_1",
			Missile: "red_1_missile_3",
			Target:  "blue_1",
			Origin:  core.Pose{X: 1, Y: 2},
			Aim:     core.XY{X: 3, Y: 4},
		}},
	}
	data.Entities["blue_1"] = &EntityRecord{ID: 1, Info: core.EntityInfo{Name: "blue_1"}}
	data.KillEvents = []core.KillEvent{{Tick: 30, Killer: "red_1", Victim: "blue_1", Missile: "red_1_missile_3", Distance: 5000}}
	data.DestroyedEvents = []core.DestroyedEvent{{Tick: 30, Name: "blue_1", Reason: "missile"}}
	data.Outcome = &core.Outcome{Winner: core.RedWins, Elapsed: 3.1, Ticks: 31}

	export := Build(data)

	require.Len(t, export.Events, 4)
	assert.Equal(t, []any{uint(3), "fired", 0, -1, "blue_1"}, export.Events[0])
	assert.Equal(t, []any{uint(30), "killed", 1, []any{0, "red_1_missile_3"}, 5000.0}, export.Events[1])
	assert.Equal(t, []any{uint(30), "destroyed", 1, "missile"}, export.Events[2])
	assert.Equal(t, []any{uint(31), "endEpisode", []any{"red", 3.1}}, export.Events[3])

	assert.Equal(t, [][]any{{uint(3), []float64{1, 2}, []float64{3, 4}, "red_1_missile_3"}}, export.Entities[0].FramesFired)
	assert.Equal(t, "red", export.Winner)
	assert.Equal(t, 31, export.EndFrame)
}

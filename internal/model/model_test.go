package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"DogfightInfo", &DogfightInfo{}, "dogfight_infos"},
		{"RunnerPerformance", &RunnerPerformance{}, "runner_performances"},
		{"Episode", &Episode{}, "episodes"},
		{"Entity", &Entity{}, "entities"},
		{"EntityState", &EntityState{}, "entity_states"},
		{"FiredEvent", &FiredEvent{}, "fired_events"},
		{"KillEvent", &KillEvent{}, "kill_events"},
		{"DestroyedEvent", &DestroyedEvent{}, "destroyed_events"},
		{"Outcome", &Outcome{}, "outcomes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_HaveTableNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range DatabaseModels {
		tn, ok := m.(interface{ TableName() string })
		if assert.True(t, ok, "%T has no TableName", m) {
			assert.False(t, seen[tn.TableName()], "duplicate table %s", tn.TableName())
			seen[tn.TableName()] = true
		}
	}
	assert.Len(t, seen, len(DatabaseModels))
}

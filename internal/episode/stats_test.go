package episode

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skyduel/dogfight/pkg/core"
)

func TestStats_Record(t *testing.T) {
	s := NewStats()
	s.Record(&core.Outcome{Winner: core.RedWins, Reward: [2]float64{1, -1}})
	s.Record(&core.Outcome{Winner: core.Draw, Truncated: true, Reward: [2]float64{0, 0}})
	s.Record(&core.Outcome{Winner: core.BlueWins, Reward: [2]float64{-1, 1}})
	s.Record(&core.Outcome{Winner: core.RedWins, Reward: [2]float64{1, -1}})

	got := s.Snapshot()
	assert.Equal(t, Summary{Rounds: 4, RedWins: 2, BlueWins: 1, Draws: 1, Truncated: 1, Reward: [2]float64{1, -1}}, got)
	assert.Equal(t, 0.5, got.WinRate(core.Red))
	assert.Equal(t, 0.25, got.WinRate(core.Blue))
	assert.Equal(t, 4, s.Rounds())
}

func TestStats_EmptyWinRate(t *testing.T) {
	assert.Zero(t, NewStats().Snapshot().WinRate(core.Red))
}

func TestStats_Concurrent(t *testing.T) {
	s := NewStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Record(&core.Outcome{Winner: core.Draw})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, s.Snapshot().Draws)
	assert.Equal(t, 50, s.Rounds())
}

func TestContext(t *testing.T) {
	c := NewContext()
	assert.Equal(t, "No episode loaded", c.GetEpisode().Name)

	c.SetProgress(5, 0.5)
	c.SetEpisode(&core.Episode{Name: "e"})
	tick, now := c.Progress()
	assert.Equal(t, uint(0), tick)
	assert.Zero(t, now)

	c.SetProgress(7, 0.7)
	tick, now = c.Progress()
	assert.Equal(t, uint(7), tick)
	assert.Equal(t, 0.7, now)
}

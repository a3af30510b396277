package episode

import (
	"sync"

	"github.com/skyduel/dogfight/internal/cache"
	"github.com/skyduel/dogfight/pkg/core"
)

// Summary is a point-in-time copy of Stats.
type Summary struct {
	Rounds    int        `json:"rounds"`
	RedWins   int        `json:"redWins"`
	BlueWins  int        `json:"blueWins"`
	Draws     int        `json:"draws"`
	Truncated int        `json:"truncated"`
	Reward    [2]float64 `json:"reward"` // indexed by core.Color
}

// WinRate is the fraction of rounds won by c.
func (s Summary) WinRate(c core.Color) float64 {
	if s.Rounds == 0 {
		return 0
	}
	wins := s.RedWins
	if c == core.Blue {
		wins = s.BlueWins
	}
	return float64(wins) / float64(s.Rounds)
}

// Stats tallies outcomes across every episode played by all runners.
type Stats struct {
	rounds cache.SafeCounter

	mu      sync.Mutex
	summary Summary
}

// NewStats creates an empty tally.
func NewStats() *Stats {
	return &Stats{}
}

// Record adds one finished episode.
func (s *Stats) Record(out *core.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rounds.Inc()
	s.summary.Rounds = s.rounds.Value()
	switch out.Winner {
	case core.RedWins:
		s.summary.RedWins++
	case core.BlueWins:
		s.summary.BlueWins++
	case core.Draw:
		s.summary.Draws++
	}
	if out.Truncated {
		s.summary.Truncated++
	}
	for _, c := range core.Colors {
		s.summary.Reward[c] += out.Reward[c]
	}
}

// Rounds is the number of finished episodes. It does not take the tally lock.
func (s *Stats) Rounds() int {
	return s.rounds.Value()
}

// Snapshot returns a copy of the tallies.
func (s *Stats) Snapshot() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

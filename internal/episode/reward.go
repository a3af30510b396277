package episode

import (
	"github.com/skyduel/dogfight/internal/config"
	"github.com/skyduel/dogfight/pkg/core"
)

// Reward computes per-step rewards for both sides. The time penalty is
// paid out as the difference to the previous step so that its running
// sum equals -TimePenalty * elapsed; a terminal step replaces the step
// reward with the win, draw or lose value.
type Reward struct {
	cfg     config.RewardConfig
	penalty [2]float64
	total   [2]float64
}

// NewReward creates a Reward with zero totals.
func NewReward(cfg config.RewardConfig) *Reward {
	return &Reward{cfg: cfg}
}

// Reset clears the running totals for a new episode.
func (r *Reward) Reset() {
	r.penalty = [2]float64{}
	r.total = [2]float64{}
}

// Step returns side c's reward for the step that ended at elapsed.
// kills and losses count the aircraft c destroyed and lost during the step.
func (r *Reward) Step(c core.Color, elapsed float64, winner core.Winner, kills, losses int) float64 {
	var rew float64
	switch winner {
	case core.Undecided:
		penalty := -r.cfg.TimePenalty * elapsed
		rew = penalty - r.penalty[c]
		r.penalty[c] = penalty
		rew += r.cfg.Kill*float64(kills) - r.cfg.Loss*float64(losses)
	case core.Draw:
		rew = r.cfg.Draw
	case core.WinnerFor(c):
		rew = r.cfg.Win
	default:
		rew = r.cfg.Lose
	}
	r.total[c] += rew
	return rew
}

// Total is side c's accumulated reward this episode.
func (r *Reward) Total(c core.Color) float64 {
	return r.total[c]
}

// Totals returns both sides' accumulated rewards, indexed by core.Color.
func (r *Reward) Totals() [2]float64 {
	return r.total
}

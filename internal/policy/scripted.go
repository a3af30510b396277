package policy

import (
	"math"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/pkg/core"
)

// ScriptedConfig tunes the rule-based pilot.
type ScriptedConfig struct {
	// ReturnFuel is the fuel fraction below which the aircraft heads home.
	ReturnFuel float64
	// EvadeRadius is how close an enemy missile may get before evading.
	EvadeRadius float64
	// FireWindow scales the missile flight duration a predicted hit must fit in.
	FireWindow float64
	// ExploreCell is the side of a PositionMemory cell.
	ExploreCell float64
	// ProbeAngles are the relative headings tried when evading.
	ProbeAngles []float64
	// ProbeLookahead is how far ahead an evasion target is placed.
	ProbeLookahead float64
}

// DefaultScriptedConfig returns the tuning used by the "scripted" policy.
func DefaultScriptedConfig() ScriptedConfig {
	return ScriptedConfig{
		ReturnFuel:     0.25,
		EvadeRadius:    6000,
		FireWindow:     0.9,
		ExploreCell:    10000,
		ProbeAngles:    []float64{-135, -90, -45, 0, 45, 90, 135, 180},
		ProbeLookahead: 5000,
	}
}

// Scripted flies by fixed rules, in order: return to base when low on
// fuel or missiles, evade incoming missiles, fire when a hit is likely,
// pursue the nearest enemy, otherwise explore.
type Scripted struct {
	cfg    ScriptedConfig
	opts   battle.Options
	memory map[string]*PositionMemory
}

var _ Policy = (*Scripted)(nil)

// NewScripted creates a scripted policy. Call Reset before the first episode.
func NewScripted(cfg ScriptedConfig) *Scripted {
	return &Scripted{cfg: cfg, opts: battle.DefaultOptions(), memory: make(map[string]*PositionMemory)}
}

func (s *Scripted) Reset(opts battle.Options) {
	s.opts = opts
	s.memory = make(map[string]*PositionMemory)
}

// Memory returns the exploration memory kept for agent, creating it on first use.
func (s *Scripted) Memory(agent string) *PositionMemory {
	m, ok := s.memory[agent]
	if !ok {
		m = NewPositionMemory(s.opts.Bounds(), s.cfg.ExploreCell)
		s.memory[agent] = m
	}
	return m
}

func (s *Scripted) Decide(area *battle.BattleArea, agent *battle.Aircraft) []core.Action {
	if agent == nil || agent.Destroyed {
		return nil
	}
	mem := s.Memory(agent.Name)
	mem.Add(agent.Pose.Point())

	if act, ok := s.returnHome(area, agent); ok {
		return []core.Action{act}
	}
	if act, ok := s.evade(area, agent); ok {
		return []core.Action{act}
	}

	enemy, err := area.FindNearestEnemy(agent.Name, false)
	if err != nil {
		return nil
	}
	if enemy != nil {
		if s.CanFire(area, agent, enemy) {
			return []core.Action{core.Fire(enemy.Pose.X, enemy.Pose.Y)}
		}
		target := enemy.Pose.Point()
		if hit, ok := agent.PredictAircraftIntercept(enemy); ok {
			target = area.Options().Bounds().Clamp(hit.Point)
		}
		return []core.Action{core.GoTo(target.X, target.Y)}
	}

	if agent.RouteSamples() == 0 {
		p := mem.Pick()
		return []core.Action{core.GoTo(p.X, p.Y)}
	}
	return nil
}

func (s *Scripted) returnHome(area *battle.BattleArea, agent *battle.Aircraft) (core.Action, bool) {
	home, ok := area.Home(agent.Color)
	if !ok || home.Destroyed {
		return core.Action{}, false
	}
	low := agent.Fuel < s.cfg.ReturnFuel*agent.FuelCapacity || agent.MissileCount <= 0
	if !low || home.Covers(agent.Pose.Point()) {
		return core.Action{}, false
	}
	return core.GoHome(), true
}

// evade steers away from the nearest enemy missile inside EvadeRadius,
// picking the probe heading whose next pose is farthest from it.
func (s *Scripted) evade(area *battle.BattleArea, agent *battle.Aircraft) (core.Action, bool) {
	missiles, err := area.DetectMissiles(agent.Name, false, true)
	if err != nil || len(missiles) == 0 {
		return core.Action{}, false
	}
	threat := missiles[0].Pose.Point()
	if agent.Pose.Point().Distance(threat) > s.cfg.EvadeRadius {
		return core.Action{}, false
	}

	bounds := area.Options().Bounds()
	best, bestDist := core.XY{}, math.Inf(-1)
	for _, p := range agent.ProbeMoves(s.cfg.ProbeAngles, s.cfg.ProbeLookahead) {
		if !bounds.Contains(p.Next.Point()) {
			continue
		}
		if d := p.Next.Point().Distance(threat); d > bestDist {
			best, bestDist = p.Target, d
		}
	}
	if math.IsInf(bestDist, -1) {
		return core.Action{}, false
	}
	return core.GoTo(best.X, best.Y), true
}

// CanFire applies the fire-control check: interval elapsed, missiles
// left, enemy in radar, and a predicted hit within FireWindow of the
// missile's flight duration.
func (s *Scripted) CanFire(area *battle.BattleArea, agent, enemy *battle.Aircraft) bool {
	opts := area.Options()
	if area.Time()-agent.LastFire < opts.Aircraft.FireInterval {
		return false
	}
	if agent.MissileCount <= 0 || enemy.Destroyed || !agent.InRadar(enemy.Pose.Point()) {
		return false
	}
	hit, ok := agent.PredictMissileIntercept(enemy)
	if !ok {
		return false
	}
	return hit.Time <= s.cfg.FireWindow*opts.MissileFlightDuration()
}

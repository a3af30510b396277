// Package control exposes a live battle area as dispatcher commands.
package control

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/internal/dispatcher"
	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/internal/parser"
	"github.com/skyduel/dogfight/pkg/core"
)

// Command names.
const (
	CmdAction   = ":ACTION:"
	CmdReset    = ":RESET:"
	CmdStep     = ":STEP:"
	CmdState    = ":STATE:"
	CmdObserve  = ":OBSERVE:"
	CmdOutcome  = ":OUTCOME:"
	CmdDetect   = ":DETECT:"
	CmdNearest  = ":NEAREST:"
	CmdPlan     = ":PLAN:"
	CmdPicture  = ":PICTURE:"
	CmdCommands = ":COMMANDS:"
)

// StepResult reports the area after one or more ticks.
type StepResult struct {
	Tick   uint         `json:"tick"`
	Time   float64      `json:"time"`
	Ticks  int          `json:"ticks"`
	Winner core.Winner  `json:"winner"`
	Events []core.Event `json:"events,omitempty"`
}

// OutcomeResult summarises the episode so far.
type OutcomeResult struct {
	Tick      uint             `json:"tick"`
	Time      float64          `json:"time"`
	Winner    core.Winner      `json:"winner"`
	Truncated bool             `json:"truncated"`
	Remaining core.RemainCount `json:"remaining"`
}

// PlanResult describes a planned route.
type PlanResult struct {
	Family   string    `json:"family"`
	Length   float64   `json:"length"`
	Feasible bool      `json:"feasible"`
	End      core.Pose `json:"end"`
	Path     string    `json:"path,omitempty"` // WKT, sampled every planSampleStep meters
}

const planSampleStep = 100.0

// Contact is one observed enemy, placed relative to the bullseye and to
// the observer's nose.
type Contact struct {
	Name            string    `json:"name"`
	Kind            core.Kind `json:"kind"`
	BullseyeBearing float64   `json:"bullseyeBearing"`
	BullseyeRange   float64   `json:"bullseyeRange"`
	RelativeBearing float64   `json:"relativeBearing"`
	Range           float64   `json:"range"`
	Heading         float64   `json:"heading"`
}

// Session serialises control access to one area. PutAction is the only
// command that does not take the session lock.
type Session struct {
	mu     sync.Mutex
	area   *battle.BattleArea
	parser *parser.Parser
	logger *slog.Logger

	// OnEvents, when set, receives every event drained by a step.
	OnEvents func([]core.Event)
}

// NewSession wraps area. The area is reset on the first :RESET: only.
func NewSession(area *battle.BattleArea, p *parser.Parser, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{area: area, parser: p, logger: logger}
}

// Register wires every command into d.
func (s *Session) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdAction, s.handleAction, dispatcher.Logged())
	d.Register(CmdReset, s.handleReset, dispatcher.Logged())
	d.Register(CmdStep, s.handleStep, dispatcher.Logged())
	d.Register(CmdState, s.handleState)
	d.Register(CmdObserve, s.handleObserve)
	d.Register(CmdOutcome, s.handleOutcome)
	d.Register(CmdDetect, s.handleDetect)
	d.Register(CmdNearest, s.handleNearest)
	d.Register(CmdPlan, s.handlePlan)
	d.Register(CmdPicture, s.handlePicture)
	d.Register(CmdCommands, func(dispatcher.Event) (any, error) {
		return d.Commands(), nil
	})
}

func (s *Session) handleAction(e dispatcher.Event) (any, error) {
	cmd, err := s.parser.ParseAction(e.Args)
	if err != nil {
		return nil, err
	}
	if err := s.area.PutAction(cmd.Name, cmd.Action); err != nil {
		return nil, err
	}
	return "ok", nil
}

func (s *Session) handleReset(e dispatcher.Event) (any, error) {
	seed, err := s.parser.ParseReset(e.Args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if seed != nil {
		s.area.Reseed(*seed)
	}
	s.area.Reset()
	s.logger.Info("Area reset by control", "entities", len(s.area.Entities()))
	return s.area.States(), nil
}

func (s *Session) handleStep(e dispatcher.Event) (any, error) {
	n, err := s.parser.ParseStep(e.Args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := StepResult{}
	for i := 0; i < n; i++ {
		if s.area.Winner().Decided() {
			break
		}
		s.area.Update()
		res.Ticks++
		events := s.area.DrainEvents()
		if len(events) > 0 {
			res.Events = append(res.Events, events...)
			if s.OnEvents != nil {
				s.OnEvents(events)
			}
		}
	}
	res.Tick = s.area.Tick()
	res.Time = s.area.Time()
	res.Winner = s.area.Winner()
	return res, nil
}

func (s *Session) handleState(e dispatcher.Event) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(e.Args) == 0 {
		return s.area.States(), nil
	}
	name, err := s.parser.ParseName(e.Args)
	if err != nil {
		return nil, err
	}
	ent, ok := s.area.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", battle.ErrUnknownEntity, name)
	}
	return ent.State(), nil
}

func (s *Session) handleObserve(e dispatcher.Event) (any, error) {
	name, err := s.parser.ParseName(e.Args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.area.Observe(name)
}

func (s *Session) handleOutcome(dispatcher.Event) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return OutcomeResult{
		Tick:      s.area.Tick(),
		Time:      s.area.Time(),
		Winner:    s.area.Winner(),
		Truncated: s.area.Truncated(),
		Remaining: s.area.RemainCount(),
	}, nil
}

func (s *Session) handleDetect(e dispatcher.Event) (any, error) {
	q, err := s.parser.ParseDetect(e.Args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	if q.Missiles {
		found, err := s.area.DetectMissiles(q.Observer, q.IgnoreRadar, q.OnlyEnemy)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			names = append(names, m.Name)
		}
	} else {
		found, err := s.area.DetectAircraft(q.Observer, q.IgnoreRadar, q.OnlyEnemy)
		if err != nil {
			return nil, err
		}
		for _, a := range found {
			names = append(names, a.Name)
		}
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (s *Session) handleNearest(e dispatcher.Event) (any, error) {
	name, err := s.parser.ParseName(e.Args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	enemy, err := s.area.FindNearestEnemy(name, false)
	if err != nil {
		return nil, err
	}
	if enemy == nil {
		return "", nil
	}
	return enemy.Name, nil
}

func (s *Session) handlePlan(e dispatcher.Event) (any, error) {
	q, err := s.parser.ParsePlan(e.Args)
	if err != nil {
		return nil, err
	}
	p := geo.Plan(q.Start, q.Target, q.Radius)
	res := PlanResult{
		Family:   p.Family(),
		Length:   p.Length,
		Feasible: p.Feasible(),
		End:      p.End,
	}
	if res.Feasible {
		if ls := geo.PathLineString(p, planSampleStep); !ls.IsEmpty() {
			res.Path = ls.AsText()
		}
	}
	return res, nil
}

// handlePicture lists the enemy aircraft and missiles the observer can see.
func (s *Session) handlePicture(e dispatcher.Event) (any, error) {
	name, err := s.parser.ParseName(e.Args)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	visible, err := s.area.Observe(name)
	if err != nil {
		return nil, err
	}
	self, _ := s.area.Get(name)
	own := self.State()
	bullseye := s.area.Options().Bullseye

	contacts := []Contact{}
	for _, st := range visible {
		if st.Color == own.Color || (st.Kind != core.KindAircraft && st.Kind != core.KindMissile) {
			continue
		}
		pos := st.Pose.Point()
		brg, rng := geo.BullseyeRelative(bullseye, pos)
		contacts = append(contacts, Contact{
			Name:            st.Name,
			Kind:            st.Kind,
			BullseyeBearing: brg,
			BullseyeRange:   rng,
			RelativeBearing: geo.RelativeBearing(own.Pose, pos),
			Range:           own.Pose.Point().Distance(pos),
			Heading:         st.Pose.Heading,
		})
	}
	return contacts, nil
}

package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/skyduel/dogfight/internal/geo"
	"github.com/skyduel/dogfight/internal/util"
	"github.com/skyduel/dogfight/pkg/core"
)

// ErrBadArgs is returned when a command carries the wrong number or shape of arguments.
var ErrBadArgs = errors.New("bad arguments")

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

func parseFinite(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not finite", s)
	}
	return f, nil
}

// ActionCommand is an action addressed to a named entity.
type ActionCommand struct {
	Name   string
	Action core.Action
}

// DetectQuery selects what a detection command reports.
type DetectQuery struct {
	Observer    string
	Missiles    bool
	IgnoreRadar bool
	OnlyEnemy   bool
}

// Parser provides pure []string -> command struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// ParseAction parses [name, kind] or [name, kind, x, y].
// Targeted kinds require coordinates, the others reject them.
func (p *Parser) ParseAction(data []string) (ActionCommand, error) {
	var cmd ActionCommand
	data = util.CleanArgs(data)

	if len(data) < 2 {
		return cmd, fmt.Errorf("%w: action needs a name and a kind, got %d args", ErrBadArgs, len(data))
	}
	if data[0] == "" {
		return cmd, fmt.Errorf("%w: empty entity name", ErrBadArgs)
	}
	cmd.Name = data[0]

	kind, err := core.ParseActionKind(data[1])
	if err != nil {
		return cmd, err
	}
	cmd.Action.Kind = kind

	switch kind {
	case core.ActionGoToLocation, core.ActionFireMissile:
		if len(data) != 4 {
			return cmd, fmt.Errorf("%w: %s needs x and y, got %d args", ErrBadArgs, kind, len(data))
		}
		if cmd.Action.X, err = parseFinite(data[2]); err != nil {
			return cmd, fmt.Errorf("%w: x: %v", ErrBadArgs, err)
		}
		if cmd.Action.Y, err = parseFinite(data[3]); err != nil {
			return cmd, fmt.Errorf("%w: y: %v", ErrBadArgs, err)
		}
	default:
		if len(data) != 2 {
			return cmd, fmt.Errorf("%w: %s takes no coordinates", ErrBadArgs, kind)
		}
	}

	p.logger.Debug("Parsed action", "name", cmd.Name, "kind", kind.String())
	return cmd, nil
}

// ParseName parses a single entity name.
func (p *Parser) ParseName(data []string) (string, error) {
	data = util.CleanArgs(data)
	if len(data) != 1 || data[0] == "" {
		return "", fmt.Errorf("%w: expected one entity name", ErrBadArgs)
	}
	return data[0], nil
}

// ParseReset parses an optional seed. A nil seed keeps the area's generator.
func (p *Parser) ParseReset(data []string) (*uint64, error) {
	data = util.CleanArgs(data)
	switch len(data) {
	case 0:
		return nil, nil
	case 1:
		seed, err := parseUintFromFloat(data[0])
		if err != nil {
			return nil, fmt.Errorf("%w: seed: %v", ErrBadArgs, err)
		}
		return &seed, nil
	}
	return nil, fmt.Errorf("%w: reset takes at most a seed", ErrBadArgs)
}

// ParseStep parses an optional tick count, default 1.
func (p *Parser) ParseStep(data []string) (int, error) {
	data = util.CleanArgs(data)
	switch len(data) {
	case 0:
		return 1, nil
	case 1:
		n, err := parseIntFromFloat(data[0])
		if err != nil {
			return 0, fmt.Errorf("%w: tick count: %v", ErrBadArgs, err)
		}
		if n < 1 {
			return 0, fmt.Errorf("%w: tick count must be positive, got %d", ErrBadArgs, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: step takes at most a tick count", ErrBadArgs)
}

// ParseDetect parses [observer, what, ignoreRadar?, onlyEnemy?] where what
// is "aircraft" or "missile". onlyEnemy defaults to true.
func (p *Parser) ParseDetect(data []string) (DetectQuery, error) {
	q := DetectQuery{OnlyEnemy: true}
	data = util.CleanArgs(data)
	if len(data) < 2 || len(data) > 4 {
		return q, fmt.Errorf("%w: detect needs an observer and a kind", ErrBadArgs)
	}
	if data[0] == "" {
		return q, fmt.Errorf("%w: empty observer name", ErrBadArgs)
	}
	q.Observer = data[0]

	switch data[1] {
	case core.KindAircraft.String():
	case core.KindMissile.String():
		q.Missiles = true
	default:
		return q, fmt.Errorf("%w: cannot detect %q", ErrBadArgs, data[1])
	}

	var err error
	if len(data) > 2 {
		if q.IgnoreRadar, err = strconv.ParseBool(data[2]); err != nil {
			return q, fmt.Errorf("%w: ignoreRadar: %v", ErrBadArgs, err)
		}
	}
	if len(data) > 3 {
		if q.OnlyEnemy, err = strconv.ParseBool(data[3]); err != nil {
			return q, fmt.Errorf("%w: onlyEnemy: %v", ErrBadArgs, err)
		}
	}
	return q, nil
}

// PlanQuery asks for the route between two points for a given turn radius.
type PlanQuery struct {
	Start  core.Pose
	Target core.XY
	Radius float64
}

// ParsePlan parses ["x,y,heading", "x,y", radius].
func (p *Parser) ParsePlan(data []string) (PlanQuery, error) {
	var q PlanQuery
	data = util.CleanArgs(data)
	if len(data) != 3 {
		return q, fmt.Errorf("%w: plan needs a start pose, a target and a radius", ErrBadArgs)
	}
	start, err := geo.PoseFromString(data[0])
	if err != nil {
		return q, fmt.Errorf("%w: start: %v", ErrBadArgs, err)
	}
	target, err := geo.PoseFromString(data[1])
	if err != nil {
		return q, fmt.Errorf("%w: target: %v", ErrBadArgs, err)
	}
	radius, err := parseFinite(data[2])
	if err != nil || radius < 0 {
		return q, fmt.Errorf("%w: radius must be a finite non-negative number", ErrBadArgs)
	}
	q.Start, q.Target, q.Radius = start, target.Point(), radius
	return q, nil
}

// Package policy holds the decision makers that drive aircraft.
package policy

import (
	"errors"
	"fmt"

	"github.com/skyduel/dogfight/internal/battle"
	"github.com/skyduel/dogfight/pkg/core"
)

// ErrUnknownPolicy is returned by New for an unregistered name.
var ErrUnknownPolicy = errors.New("unknown policy")

// Policy decides what one aircraft should do next.
type Policy interface {
	// Reset clears per-episode state.
	Reset(opts battle.Options)
	// Decide returns the actions to queue for agent. It must not mutate the area.
	Decide(area *battle.BattleArea, agent *battle.Aircraft) []core.Action
}

// Idle never acts; its aircraft follow whatever route they already have.
type Idle struct{}

var _ Policy = Idle{}

func (Idle) Reset(battle.Options) {}

func (Idle) Decide(*battle.BattleArea, *battle.Aircraft) []core.Action { return nil }

// New builds a policy by name: "scripted" or "idle".
func New(name string) (Policy, error) {
	switch name {
	case "scripted", "":
		return NewScripted(DefaultScriptedConfig()), nil
	case "idle":
		return Idle{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}

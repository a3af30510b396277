// pkg/core/action.go
package core

import (
	"errors"
	"fmt"
)

// ActionKind tags an Action.
type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionGoToLocation
	ActionFireMissile
	ActionGoHome
)

// ErrInvalidAction is returned for actions with an unknown tag or
// unrepresentable coordinates.
var ErrInvalidAction = errors.New("invalid action")

var actionNames = map[ActionKind]string{
	ActionNone:         "none",
	ActionGoToLocation: "go_to_location",
	ActionFireMissile:  "fire_missile",
	ActionGoHome:       "go_home",
}

func (k ActionKind) String() string {
	if s, ok := actionNames[k]; ok {
		return s
	}
	return fmt.Sprintf("action(%d)", uint8(k))
}

func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ActionKind) UnmarshalText(b []byte) error {
	parsed, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseActionKind converts a textual tag to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for k, name := range actionNames {
		if name == s {
			return k, nil
		}
	}
	return ActionNone, fmt.Errorf("%w: unknown tag %q", ErrInvalidAction, s)
}

// Action is a decision submitted to an entity. X and Y are the target
// point for go_to_location and fire_missile.
type Action struct {
	Kind ActionKind `json:"kind"`
	X    float64    `json:"x,omitempty"`
	Y    float64    `json:"y,omitempty"`
}

// GoTo builds a go_to_location action.
func GoTo(x, y float64) Action { return Action{Kind: ActionGoToLocation, X: x, Y: y} }

// Fire builds a fire_missile action aimed at (x, y).
func Fire(x, y float64) Action { return Action{Kind: ActionFireMissile, X: x, Y: y} }

// GoHome builds a go_home action.
func GoHome() Action { return Action{Kind: ActionGoHome} }

// Target returns the action's target point.
func (a Action) Target() XY { return XY{X: a.X, Y: a.Y} }

// Validate checks the tag and, for targeted actions, the coordinates.
func (a Action) Validate() error {
	switch a.Kind {
	case ActionNone, ActionGoHome:
		return nil
	case ActionGoToLocation, ActionFireMissile:
		if !a.Target().Finite() {
			return fmt.Errorf("%w: %s target (%v, %v) is not finite", ErrInvalidAction, a.Kind, a.X, a.Y)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown tag %d", ErrInvalidAction, uint8(a.Kind))
}

// ConsumedAction is an action together with the simulated time at which
// the entity drained it from its queue.
type ConsumedAction struct {
	Time   float64 `json:"time"`
	Action Action  `json:"action"`
}

// pkg/core/types.go
package core

import "fmt"

// Color is the side an entity belongs to.
type Color uint8

const (
	Red Color = iota
	Blue
)

// Colors lists both sides in index order.
var Colors = [...]Color{Red, Blue}

func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	}
	return fmt.Sprintf("color(%d)", uint8(c))
}

// Index is the numeric encoding used by observation vectors.
func (c Color) Index() int { return int(c) }

// Enemy returns the opposing side.
func (c Color) Enemy() Color {
	if c == Red {
		return Blue
	}
	return Red
}

func (c Color) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Color) UnmarshalText(b []byte) error {
	parsed, err := ParseColor(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseColor converts "red" or "blue" to a Color.
func ParseColor(s string) (Color, error) {
	switch s {
	case "red":
		return Red, nil
	case "blue":
		return Blue, nil
	}
	return 0, fmt.Errorf("unknown color %q", s)
}

// Kind tags the entity variant. Values match the observation encoding,
// where 0 is "unseen" and 1 is "empty".
type Kind uint8

const (
	KindAircraft Kind = iota + 2
	KindMissile
	KindHome
	KindBullseye
)

func (k Kind) String() string {
	switch k {
	case KindAircraft:
		return "aircraft"
	case KindMissile:
		return "missile"
	case KindHome:
		return "home"
	case KindBullseye:
		return "bullseye"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Index is the numeric encoding used by observation vectors.
func (k Kind) Index() int { return int(k) }

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "aircraft":
		*k = KindAircraft
	case "missile":
		*k = KindMissile
	case "home":
		*k = KindHome
	case "bullseye":
		*k = KindBullseye
	default:
		return fmt.Errorf("unknown kind %q", string(b))
	}
	return nil
}

// Winner is the outcome classification of an episode.
type Winner string

const (
	Undecided Winner = ""
	RedWins   Winner = "red"
	BlueWins  Winner = "blue"
	Draw      Winner = "draw"
)

// Decided reports whether the episode has ended.
func (w Winner) Decided() bool { return w != Undecided }

// WinnerFor returns the winning value for side c.
func WinnerFor(c Color) Winner {
	if c == Red {
		return RedWins
	}
	return BlueWins
}

// RemainCount holds non-destroyed entity counts, indexed by Color.
type RemainCount struct {
	Aircraft [2]int `json:"aircraft"`
	Missile  [2]int `json:"missile"`
	Home     [2]int `json:"home"`
}

// Missiles returns the number of missiles still airborne on both sides.
func (r RemainCount) Missiles() int { return r.Missile[Red] + r.Missile[Blue] }

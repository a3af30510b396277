package battle

import "github.com/skyduel/dogfight/pkg/core"

// RemainCount counts non-destroyed entities per kind and side.
func (a *BattleArea) RemainCount() core.RemainCount {
	var rc core.RemainCount
	for _, e := range a.Entities() {
		obj := e.Object()
		if obj.Destroyed {
			continue
		}
		switch obj.Kind {
		case core.KindAircraft:
			rc.Aircraft[obj.Color]++
		case core.KindMissile:
			rc.Missile[obj.Color]++
		case core.KindHome:
			rc.Home[obj.Color]++
		}
	}
	return rc
}

// Winner classifies the episode. It stays undecided while any missile is
// airborne; otherwise a side wins when only it has aircraft left, and the
// game is drawn when neither side has any or time has run out.
func (a *BattleArea) Winner() core.Winner {
	rc := a.RemainCount()
	if rc.Missiles() > 0 {
		return core.Undecided
	}
	red, blue := rc.Aircraft[core.Red], rc.Aircraft[core.Blue]
	switch {
	case red == 0 && blue == 0:
		return core.Draw
	case red == 0:
		return core.BlueWins
	case blue == 0:
		return core.RedWins
	case a.time >= a.opts.MaxDuration:
		return core.Draw
	}
	return core.Undecided
}

// Truncated reports whether the configured maximum duration has elapsed.
func (a *BattleArea) Truncated() bool {
	return a.time >= a.opts.MaxDuration
}

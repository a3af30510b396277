package battle

import (
	"fmt"
	"sort"

	"github.com/skyduel/dogfight/pkg/core"
)

func (a *BattleArea) observer(name string) (*Aircraft, error) {
	e, ok := a.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, name)
	}
	ac, ok := e.(*Aircraft)
	if !ok {
		return nil, fmt.Errorf("%w: %q is a %s", ErrNotAircraft, name, e.Object().Kind)
	}
	return ac, nil
}

// detect returns live entities of type T other than the observer, nearest first.
func detect[T Entity](a *BattleArea, observer string, ignoreRadar, onlyEnemy bool) ([]T, error) {
	obs, err := a.observer(observer)
	if err != nil {
		return nil, err
	}
	type hit struct {
		e    T
		dist float64
	}
	var hits []hit
	for _, e := range entitiesOf[T](a) {
		obj := e.Object()
		if obj.Name == observer || obj.Destroyed {
			continue
		}
		if onlyEnemy && obj.Color == obs.Color {
			continue
		}
		d := obs.Pose.Distance(obj.Pose)
		if !ignoreRadar && d > obs.RadarRadius {
			continue
		}
		hits = append(hits, hit{e: e, dist: d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = h.e
	}
	return out, nil
}

// DetectMissiles lists missiles seen by the observer, nearest first.
func (a *BattleArea) DetectMissiles(observer string, ignoreRadar, onlyEnemy bool) ([]*Missile, error) {
	return detect[*Missile](a, observer, ignoreRadar, onlyEnemy)
}

// DetectAircraft lists aircraft seen by the observer, nearest first.
func (a *BattleArea) DetectAircraft(observer string, ignoreRadar, onlyEnemy bool) ([]*Aircraft, error) {
	return detect[*Aircraft](a, observer, ignoreRadar, onlyEnemy)
}

// FindNearestEnemy returns the closest live enemy aircraft, or nil if none is seen.
func (a *BattleArea) FindNearestEnemy(observer string, ignoreRadar bool) (*Aircraft, error) {
	found, err := a.DetectAircraft(observer, ignoreRadar, true)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// Observe returns what the observer's side may know: its own side in
// full, enemy aircraft and missiles only within radar and with fuel and
// missile count hidden. Bases and the bullseye are always visible.
func (a *BattleArea) Observe(observer string) ([]core.EntityState, error) {
	obs, err := a.observer(observer)
	if err != nil {
		return nil, err
	}
	var out []core.EntityState
	for _, e := range a.Entities() {
		s := e.State()
		switch {
		case s.Kind == core.KindHome || s.Kind == core.KindBullseye || s.Color == obs.Color:
		case !obs.InRadar(s.Pose.Point()):
			continue
		default:
			s.Fuel = 0
			s.MissileCount = 0
			s.Kills = nil
			s.Route = nil
			s.RouteSamples = 0
		}
		out = append(out, s)
	}
	return out, nil
}

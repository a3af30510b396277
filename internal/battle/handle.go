package battle

// Handle is an entity's non-owning reference to the area it lives in.
// It stops resolving once the area is reset or closed.
type Handle struct {
	area *BattleArea
	gen  uint64
}

// Resolve returns the area, or false if the handle is stale.
func (h Handle) Resolve() (*BattleArea, bool) {
	if h.area == nil || h.area.closed || h.area.gen != h.gen {
		return nil, false
	}
	return h.area, true
}

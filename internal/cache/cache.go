package cache

import (
	"sync"

	"github.com/skyduel/dogfight/pkg/core"
)

// EntityCache assigns object IDs to entities as they first appear in an
// episode and keeps them around so writers never need a DB read to resolve
// a name.
type EntityCache struct {
	m      sync.Mutex
	byName map[string]uint16
	infos  []core.EntityInfo // indexed by object ID
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		byName: make(map[string]uint16),
	}
}

func (c *EntityCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.byName = make(map[string]uint16)
	c.infos = nil
}

// Add registers info and returns its object ID. created is false when the
// name was already known; the first registration wins.
func (c *EntityCache) Add(info core.EntityInfo) (id uint16, created bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if id, ok := c.byName[info.Name]; ok {
		return id, false
	}
	id = uint16(len(c.infos))
	c.byName[info.Name] = id
	c.infos = append(c.infos, info)
	return id, true
}

// Get returns the object ID for name.
func (c *EntityCache) Get(name string) (uint16, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	id, ok := c.byName[name]
	return id, ok
}

// Info returns the registration of an object ID.
func (c *EntityCache) Info(id uint16) (core.EntityInfo, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if int(id) >= len(c.infos) {
		return core.EntityInfo{}, false
	}
	return c.infos[id], true
}

func (c *EntityCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.infos)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

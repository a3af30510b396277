package episode

import (
	"sync"

	"github.com/skyduel/dogfight/pkg/core"
)

// Context holds the episode a runner is currently playing and how far it got.
type Context struct {
	mu      sync.RWMutex
	episode *core.Episode
	tick    uint
	time    float64
}

// NewContext creates a Context with a placeholder episode.
func NewContext() *Context {
	return &Context{
		episode: &core.Episode{Name: "No episode loaded"},
	}
}

// GetEpisode returns the current episode.
func (c *Context) GetEpisode() *core.Episode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.episode
}

// SetEpisode replaces the current episode and rewinds the progress.
func (c *Context) SetEpisode(ep *core.Episode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.episode = ep
	c.tick = 0
	c.time = 0
}

// SetProgress records the last completed tick.
func (c *Context) SetProgress(tick uint, t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tick = tick
	c.time = t
}

// Progress returns the last completed tick and its simulated time.
func (c *Context) Progress() (uint, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tick, c.time
}

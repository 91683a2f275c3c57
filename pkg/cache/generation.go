package cache

import (
	gocache "github.com/patrickmn/go-cache"
)

// Generations keeps a process-local counter per key. Counters never expire;
// resetting one could revive a page cached under an old generation.
type Generations struct {
	c *gocache.Cache
}

func NewGenerations() *Generations {
	return &Generations{c: gocache.New(gocache.NoExpiration, 0)}
}

// Current returns the counter for key, zero when it was never bumped.
func (g *Generations) Current(key string) uint64 {
	v, ok := g.c.Get(key)
	if !ok {
		return 0
	}
	n, _ := v.(uint64)
	return n
}

// Bump advances the counter for key and returns the new value.
func (g *Generations) Bump(key string) uint64 {
	if err := g.c.Add(key, uint64(1), gocache.NoExpiration); err == nil {
		return 1
	}
	n, err := g.c.IncrementUint64(key, 1)
	if err != nil {
		// Only reachable if the key held another type.
		g.c.Set(key, uint64(1), gocache.NoExpiration)
		return 1
	}
	return n
}

// Package cache memoizes parse results and finished plans keyed by
// normalized input text. Both caches are bounded LRUs and are invalidated
// wholesale when the grammar is reloaded.
package cache

import (
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"steward/internal/logging"
	"steward/internal/types"
)

// Stats reports hit/miss counters for one cache.
type Stats struct {
	Hits   int64
	Misses int64
	Size   int
}

// Cache holds the parse and plan caches. Keys are always the normalized
// text, never the raw utterance. All operations are safe for concurrent
// use; invalidation swaps both caches atomically under a short lock so a
// lookup started just before invalidation may return stale data but never
// corrupt state.
type Cache struct {
	mu     sync.RWMutex
	parsed *lru.Cache[string, *types.ParsedCommand]
	plans  *lru.Cache[string, *types.TaskPlan]

	parseHits   atomic.Int64
	parseMisses atomic.Int64
	planHits    atomic.Int64
	planMisses  atomic.Int64

	parseCap int
	planCap  int
}

// New creates bounded parse and plan caches.
func New(parseCapacity, planCapacity int) (*Cache, error) {
	if parseCapacity <= 0 {
		parseCapacity = 100
	}
	if planCapacity <= 0 {
		planCapacity = 100
	}
	parsed, err := lru.New[string, *types.ParsedCommand](parseCapacity)
	if err != nil {
		return nil, err
	}
	plans, err := lru.New[string, *types.TaskPlan](planCapacity)
	if err != nil {
		return nil, err
	}
	return &Cache{
		parsed:   parsed,
		plans:    plans,
		parseCap: parseCapacity,
		planCap:  planCapacity,
	}, nil
}

// GetParsed returns the cached parse for normalized text.
func (c *Cache) GetParsed(text string) (*types.ParsedCommand, bool) {
	c.mu.RLock()
	v, ok := c.parsed.Get(text)
	c.mu.RUnlock()
	if ok {
		c.parseHits.Add(1)
		logging.CacheDebug("parse hit: %q", text)
	} else {
		c.parseMisses.Add(1)
	}
	return v, ok
}

// PutParsed stores a parse result.
func (c *Cache) PutParsed(text string, cmd *types.ParsedCommand) {
	c.mu.RLock()
	c.parsed.Add(text, cmd)
	c.mu.RUnlock()
}

// GetPlan returns the cached plan for normalized text.
func (c *Cache) GetPlan(text string) (*types.TaskPlan, bool) {
	c.mu.RLock()
	v, ok := c.plans.Get(text)
	c.mu.RUnlock()
	if ok {
		c.planHits.Add(1)
		logging.CacheDebug("plan hit: %q", text)
	} else {
		c.planMisses.Add(1)
	}
	return v, ok
}

// PutPlan stores a plan. Only well-formed plans are cached; invalid plans
// must be rebuilt so their errors reflect the current grammar.
func (c *Cache) PutPlan(text string, plan *types.TaskPlan) {
	if plan == nil || !plan.Valid {
		return
	}
	c.mu.RLock()
	c.plans.Add(text, plan)
	c.mu.RUnlock()
}

// InvalidateAll drops every cached parse and plan. Called synchronously on
// grammar reload.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Replace rather than purge: readers holding the old maps finish
	// against consistent state.
	parsed, _ := lru.New[string, *types.ParsedCommand](c.parseCap)
	plans, _ := lru.New[string, *types.TaskPlan](c.planCap)
	c.parsed = parsed
	c.plans = plans
	logging.CacheDebug("all caches invalidated")
}

// ParseStats returns hit/miss counters for the parse cache.
func (c *Cache) ParseStats() Stats {
	c.mu.RLock()
	size := c.parsed.Len()
	c.mu.RUnlock()
	return Stats{Hits: c.parseHits.Load(), Misses: c.parseMisses.Load(), Size: size}
}

// PlanStats returns hit/miss counters for the plan cache.
func (c *Cache) PlanStats() Stats {
	c.mu.RLock()
	size := c.plans.Len()
	c.mu.RUnlock()
	return Stats{Hits: c.planHits.Load(), Misses: c.planMisses.Load(), Size: size}
}

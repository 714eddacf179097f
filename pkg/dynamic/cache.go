package dynamic

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/leapstack-labs/dynsql/pkg/template"
)

// PlanCache maps template source text to its parsed form.
// Entries are parsed lazily, once per source even under concurrent
// first access, and never change after they are stored.
type PlanCache struct {
	plans  sync.Map // source -> *template.Template
	group  singleflight.Group
	size   atomic.Int64
	hits   atomic.Int64
	misses atomic.Int64
	logger *slog.Logger
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// NewPlanCache creates an empty cache. A nil logger discards output.
func NewPlanCache(logger *slog.Logger) *PlanCache {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PlanCache{logger: logger}
}

// Get returns the parsed template for src, parsing it on first use.
// Parse failures are returned and not cached.
func (c *PlanCache) Get(src string) (*template.Template, error) {
	if tpl, ok := c.plans.Load(src); ok {
		c.hits.Add(1)
		return tpl.(*template.Template), nil
	}

	v, err, _ := c.group.Do(src, func() (any, error) {
		if tpl, ok := c.plans.Load(src); ok {
			return tpl, nil
		}
		c.misses.Add(1)

		tpl, err := template.Parse(src, "")
		if err != nil {
			return nil, err
		}
		c.plans.Store(src, tpl)
		c.size.Add(1)
		c.logger.Debug("cached template plan", "nodes", len(tpl.Nodes), "bytes", len(src))
		return tpl, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*template.Template), nil
}

// Len returns the number of cached plans.
func (c *PlanCache) Len() int { return int(c.size.Load()) }

// Stats returns the current counters.
func (c *PlanCache) Stats() CacheStats {
	return CacheStats{Entries: c.size.Load(), Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Reset drops every cached plan and zeroes the hit and miss counters.
// Plans stored by concurrent Get calls may survive; Len stays equal to
// the number of stored plans either way.
func (c *PlanCache) Reset() {
	c.plans.Range(func(k, _ any) bool {
		if _, loaded := c.plans.LoadAndDelete(k); loaded {
			c.size.Add(-1)
		}
		return true
	})
	c.hits.Store(0)
	c.misses.Store(0)
}

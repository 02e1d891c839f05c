// Package cache is the gateway's process-wide TTL cache, partitioned by result kind.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/vanshika/nftgateway/internal/metrics"
)

// Kind names a cache partition.
type Kind string

const (
	KindGeneric   Kind = "generic"
	KindTransfers Kind = "transfers"
	KindProfiles  Kind = "profiles"
	KindFriends   Kind = "friends"
)

// Kinds lists every partition.
var Kinds = []Kind{KindGeneric, KindTransfers, KindProfiles, KindFriends}

// Config sets per-kind TTLs and the per-kind entry bound.
type Config struct {
	MaxEntries int
	TTLs       map[Kind]time.Duration
}

// DefaultConfig returns the stock TTLs: 5m generic, 10m for the rest, 1000 entries per kind.
func DefaultConfig() Config {
	return Config{
		MaxEntries: 1000,
		TTLs: map[Kind]time.Duration{
			KindGeneric:   5 * time.Minute,
			KindTransfers: 10 * time.Minute,
			KindProfiles:  10 * time.Minute,
			KindFriends:   10 * time.Minute,
		},
	}
}

// Stats is a point-in-time view of one partition.
type Stats struct {
	Entries    int           `json:"entries"`
	Hits       int64         `json:"hits"`
	Misses     int64         `json:"misses"`
	Evictions  int64         `json:"evictions"`
	TTL        time.Duration `json:"ttl"`
	MaxEntries int           `json:"maxEntries"`
}

// Cache is safe for concurrent use. Reads never take a lock. A nil *Cache
// stores nothing and always misses.
type Cache struct {
	clock      clock.Clock
	metrics    *metrics.Metrics
	partitions map[Kind]*partition
}

type entry struct {
	value     any
	expiresAt time.Time
	seq       uint64
}

type queued struct {
	key string
	seq uint64
}

type partition struct {
	kind    Kind
	ttl     time.Duration
	max     int
	entries *xsync.MapOf[string, entry]

	// mu guards order and seq; only writers take it.
	mu    sync.Mutex
	order []queued
	seq   uint64

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New builds a cache. A nil clock means the wall clock.
func New(cfg Config, clk clock.Clock, m *metrics.Metrics) *Cache {
	if clk == nil {
		clk = clock.WallClock
	}
	defaults := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaults.MaxEntries
	}
	c := &Cache{
		clock:      clk,
		metrics:    m,
		partitions: make(map[Kind]*partition, len(Kinds)),
	}
	for _, kind := range Kinds {
		ttl := cfg.TTLs[kind]
		if ttl <= 0 {
			ttl = defaults.TTLs[kind]
		}
		c.partitions[kind] = &partition{
			kind:    kind,
			ttl:     ttl,
			max:     cfg.MaxEntries,
			entries: xsync.NewMapOf[string, entry](),
		}
	}
	return c
}

// Get returns the value stored under key iff it has not expired.
// Expired entries are removed on the way out.
func (c *Cache) Get(kind Kind, key string) (any, bool) {
	if c == nil {
		return nil, false
	}
	p, ok := c.partitions[kind]
	if !ok {
		return nil, false
	}
	e, ok := p.entries.Load(key)
	if ok && !c.clock.Now().Before(e.expiresAt) {
		p.entries.Compute(key, func(old entry, loaded bool) (entry, bool) {
			return old, !loaded || old.seq == e.seq
		})
		ok = false
	}
	if ok {
		p.hits.Add(1)
	} else {
		p.misses.Add(1)
	}
	c.metrics.ObserveCache(string(kind), ok)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// Lookup is Get with a type assertion; a value of another type is a miss.
func Lookup[T any](c *Cache, kind Kind, key string) (T, bool) {
	var zero T
	v, ok := c.Get(kind, key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Set stores value with the kind's default TTL.
func (c *Cache) Set(kind Kind, key string, value any) {
	c.SetWithTTL(kind, key, value, 0)
}

// SetWithTTL stores value, overwriting any previous entry. A non-positive ttl
// means the kind's default.
func (c *Cache) SetWithTTL(kind Kind, key string, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	p, ok := c.partitions[kind]
	if !ok {
		return
	}
	if ttl <= 0 {
		ttl = p.ttl
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.entries.Store(key, entry{value: value, expiresAt: c.clock.Now().Add(ttl), seq: p.seq})
	p.order = append(p.order, queued{key: key, seq: p.seq})
	p.evictLocked()
}

// evictLocked drops the oldest insertions until the partition is within bounds.
func (p *partition) evictLocked() {
	for p.entries.Size() > p.max && len(p.order) > 0 {
		oldest := p.order[0]
		p.order = p.order[1:]
		evicted := false
		// Compute stores whatever it is handed unless told to delete, so an
		// absent key must be answered with delete.
		p.entries.Compute(oldest.key, func(old entry, loaded bool) (entry, bool) {
			evicted = loaded && old.seq == oldest.seq
			return old, !loaded || evicted
		})
		if evicted {
			p.evictions.Add(1)
		}
	}
	// Overwrites leave stale queue slots behind.
	if len(p.order) > 2*p.max {
		live := p.order[:0:0]
		for _, q := range p.order {
			if e, ok := p.entries.Load(q.key); ok && e.seq == q.seq {
				live = append(live, q)
			}
		}
		p.order = live
	}
}

// Clear empties one partition.
func (c *Cache) Clear(kind Kind) {
	if c == nil {
		return
	}
	p, ok := c.partitions[kind]
	if !ok {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries.Clear()
	p.order = nil
}

// ClearAll empties every partition.
func (c *Cache) ClearAll() {
	for _, kind := range Kinds {
		c.Clear(kind)
	}
}

// Stats reports per-kind counters.
func (c *Cache) Stats() map[Kind]Stats {
	if c == nil {
		return nil
	}
	out := make(map[Kind]Stats, len(c.partitions))
	for kind, p := range c.partitions {
		out[kind] = Stats{
			Entries:    p.entries.Size(),
			Hits:       p.hits.Load(),
			Misses:     p.misses.Load(),
			Evictions:  p.evictions.Load(),
			TTL:        p.ttl,
			MaxEntries: p.max,
		}
	}
	return out
}

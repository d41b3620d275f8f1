// Package memcache implements the in-process TTL tier.
//
// Keys are spread over a power-of-two number of shards by xxh3, each shard
// guarded by its own RWMutex, so independent collaborators rarely contend.
// Reads are side-effect free: an expired entry is reported absent but stays
// in place until Sweep or Remove. Time comes from an injected clock.
package memcache

import (
	"github.com/benbjohnson/clock"
	"github.com/zeebo/xxh3"
	"math/bits"
	"sync/atomic"
	"time"
)

const defaultShards = 64

type Cache struct {
	clock  clock.Clock
	shards []*shard
	mask   uint64
	len    atomic.Int64
}

// New creates a cache with numShards rounded up to a power of two.
func New(clk clock.Clock, numShards int) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	if numShards <= 0 {
		numShards = defaultShards
	}
	n := 1 << bits.Len(uint(numShards-1))

	c := &Cache{clock: clk, shards: make([]*shard, n), mask: uint64(n - 1)}
	for i := range c.shards {
		c.shards[i] = newShard()
	}
	return c
}

// Get returns the value iff the entry is live.
func (c *Cache) Get(key string) (any, bool) {
	e, ok := c.shard(key).get(key)
	if !ok || !e.IsLive(c.clock.Now()) {
		return nil, false
	}
	return e.Value, true
}

// Peek returns the raw entry, live or not.
func (c *Cache) Peek(key string) (Entry, bool) {
	return c.shard(key).get(key)
}

// Set inserts or overwrites key. ttl == 0 means the entry never expires.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl < 0 {
		ttl = 0
	}
	e := Entry{Value: value, WrittenAt: c.clock.Now(), TTL: ttl}
	c.len.Add(c.shard(key).set(key, e))
}

// Remove deletes key and reports whether it was present. Removing an absent key is a no-op.
func (c *Cache) Remove(key string) bool {
	if c.shard(key).remove(key) {
		c.len.Add(-1)
		return true
	}
	return false
}

// Sweep removes every non-live entry and returns how many were removed.
// Entries without TTL are never removed.
func (c *Cache) Sweep() int {
	now := c.clock.Now()
	removed := 0
	for _, sh := range c.shards {
		removed += sh.sweep(now)
	}
	c.len.Add(-int64(removed))
	return removed
}

// SnapshotAll exports every entry, including expired ones not yet swept.
func (c *Cache) SnapshotAll() map[string]Entry {
	out := make(map[string]Entry, c.Len())
	for _, sh := range c.shards {
		sh.copyTo(out)
	}
	return out
}

// Restore merges a snapshot back, keeping each entry's original write time so
// expiry is computed from the original write, not from the restore.
// An entry already present and at least as recent as the snapshot one wins.
// Returns the number of entries applied.
func (c *Cache) Restore(snapshot map[string]Entry) int {
	applied := 0
	for k, e := range snapshot {
		if e.TTL < 0 {
			e.TTL = 0
		}
		ok, delta := c.shard(k).merge(k, e)
		if ok {
			applied++
		}
		c.len.Add(delta)
	}
	return applied
}

// Clear drops every entry.
func (c *Cache) Clear() {
	for _, sh := range c.shards {
		c.len.Add(-int64(sh.clear()))
	}
}

// Len returns the number of stored entries, expired-but-unswept included.
func (c *Cache) Len() int { return int(c.len.Load()) }

func (c *Cache) shard(key string) *shard {
	return c.shards[xxh3.HashString(key)&c.mask]
}

package persistence

import "sync/atomic"

type counters struct {
	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	removes atomic.Int64
}

func newCounters() *counters {
	return &counters{}
}

func (c *counters) snapshot() (hits, misses, sets, removes int64) {
	return c.hits.Load(), c.misses.Load(), c.sets.Load(), c.removes.Load()
}

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.sets.Store(0)
	c.removes.Store(0)
}

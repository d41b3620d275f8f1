package janitor

import "sync/atomic"

type janitorCounters struct {
	runs   atomic.Int64 // completed sweeps, the final one included
	purged atomic.Int64 // entries removed over all sweeps
}

func newJanitorCounters() *janitorCounters {
	return &janitorCounters{
		runs:   atomic.Int64{},
		purged: atomic.Int64{},
	}
}

func (c *janitorCounters) snapshot() (runs, purged int64) {
	runs = c.runs.Load()
	purged = c.purged.Load()
	return
}

package telemetry

import (
	"github.com/MoonWalka/app-booking-2-sub010/internal/janitor"
	"github.com/MoonWalka/app-booking-2-sub010/model"
)

type StatsSource interface {
	Stats() model.Stats
}

type sampler struct {
	stats   StatsSource
	janitor janitor.Janitor
}

func newSampler(s StatsSource, j janitor.Janitor) sampler {
	if j == nil {
		j = janitor.NoOpJanitor{}
	}
	return sampler{stats: s, janitor: j}
}

// snapshot holds cumulative counters (monotonic unless stats are reset).
type snapshot struct {
	hits    uint64
	misses  uint64
	sets    uint64
	removes uint64

	sweeps uint64
	purged uint64
}

func (s sampler) snapshot() snapshot {
	st := s.stats.Stats()
	runs, purged := s.janitor.Metrics()

	return snapshot{
		hits:    uint64(max(st.Hits, 0)),
		misses:  uint64(max(st.Misses, 0)),
		sets:    uint64(max(st.Sets, 0)),
		removes: uint64(max(st.Removes, 0)),

		sweeps: uint64(max(runs, 0)),
		purged: uint64(max(purged, 0)),
	}
}

// deltaSnapshot converts cumulative snapshots to per-interval deltas.
// If counters reset (cur < prev), it treats cur as the delta.
func deltaSnapshot(prev, cur snapshot) snapshot {
	return snapshot{
		hits:    delta(prev.hits, cur.hits),
		misses:  delta(prev.misses, cur.misses),
		sets:    delta(prev.sets, cur.sets),
		removes: delta(prev.removes, cur.removes),

		sweeps: delta(prev.sweeps, cur.sweeps),
		purged: delta(prev.purged, cur.purged),
	}
}

func delta(prev, cur uint64) uint64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}

func ratio(hits, misses uint64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

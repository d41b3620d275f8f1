package model

import "time"

// TTL presets. Callers rely on the qualitative meaning of each preset
// ("short-lived" vs "day-long"), so the values are fixed.
const (
	TTLShort  = 5 * time.Minute
	TTLMedium = 30 * time.Minute
	TTLLong   = 2 * time.Hour
	TTLDay    = 24 * time.Hour
	TTLWeek   = 7 * 24 * time.Hour
)

// NoTTL marks an entry that never expires within the memory tier.
const NoTTL time.Duration = 0

// DefaultTTL is used when a caller does not pick a preset.
const DefaultTTL = TTLMedium

// Stats is a point-in-time view of the persistence counters.
type Stats struct {
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	Sets       int64   `json:"sets"`
	Removes    int64   `json:"removes"`
	MemorySize int     `json:"memorySize"`
	HitRate    float64 `json:"hitRate"`
}

// HitRatio computes hits / (hits + misses), defined as 0 when nothing was read.
func HitRatio(hits, misses int64) float64 {
	total := hits + misses
	if total <= 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

package memcache

import "time"

// Entry is one memory-tier record.
type Entry struct {
	Value     any
	WrittenAt time.Time
	TTL       time.Duration // 0 means the entry never expires
}

// IsLive reports whether the entry is still valid at now:
// ttl == 0 OR now - writtenAt < ttl.
func (e Entry) IsLive(now time.Time) bool {
	if e.TTL <= 0 {
		return true
	}
	return now.Sub(e.WrittenAt) < e.TTL
}

// ExpiresAt returns the expiry instant, zero for entries without TTL.
func (e Entry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.WrittenAt.Add(e.TTL)
}

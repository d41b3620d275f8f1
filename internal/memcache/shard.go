package memcache

import (
	"sync"
	"time"
)

// shard is an independent segment of the cache guarded by its own lock.
type shard struct {
	sync.RWMutex
	items map[string]Entry
}

func newShard() *shard {
	return &shard{items: make(map[string]Entry)}
}

func (sh *shard) get(key string) (Entry, bool) {
	sh.RLock()
	e, ok := sh.items[key]
	sh.RUnlock()
	return e, ok
}

// set returns the length delta (1 on insert, 0 on overwrite).
func (sh *shard) set(key string, e Entry) int64 {
	sh.Lock()
	_, existed := sh.items[key]
	sh.items[key] = e
	sh.Unlock()
	if existed {
		return 0
	}
	return 1
}

func (sh *shard) remove(key string) bool {
	sh.Lock()
	_, ok := sh.items[key]
	if ok {
		delete(sh.items, key)
	}
	sh.Unlock()
	return ok
}

// merge inserts e unless a newer entry is already stored.
func (sh *shard) merge(key string, e Entry) (applied bool, lenDelta int64) {
	sh.Lock()
	defer sh.Unlock()
	if cur, ok := sh.items[key]; ok {
		if !cur.WrittenAt.Before(e.WrittenAt) {
			return false, 0
		}
		sh.items[key] = e
		return true, 0
	}
	sh.items[key] = e
	return true, 1
}

// sweep removes every non-live entry under the write lock.
func (sh *shard) sweep(now time.Time) int {
	sh.Lock()
	removed := 0
	for k, e := range sh.items {
		if !e.IsLive(now) {
			delete(sh.items, k)
			removed++
		}
	}
	sh.Unlock()
	return removed
}

// copyTo exports entries under the read lock.
func (sh *shard) copyTo(dst map[string]Entry) {
	sh.RLock()
	for k, e := range sh.items {
		dst[k] = e
	}
	sh.RUnlock()
}

func (sh *shard) clear() int {
	sh.Lock()
	n := len(sh.items)
	sh.items = make(map[string]Entry)
	sh.Unlock()
	return n
}

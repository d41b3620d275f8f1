// Package persistence is the façade collaborators use to cache data.
//
// A call names a strategy, the strategy picks the tiers: the in-process TTL
// cache, the session tier and/or the long-lived tier. Nothing here returns
// an error or panics across the public boundary; failures are logged and
// reported as a false/absent result, callers already tolerate cache misses.
//
// TTL is enforced by the memory tier and, for the TTL strategy only, on
// durable reads. Records read back through SessionOnly/LocalOnly never
// expire even when they were written with a TTL.
package persistence

import (
	"context"
	"errors"
	"github.com/MoonWalka/app-booking-2-sub010/internal/codec"
	"github.com/MoonWalka/app-booking-2-sub010/internal/memcache"
	"github.com/MoonWalka/app-booking-2-sub010/internal/tier"
	"github.com/MoonWalka/app-booking-2-sub010/model"
	"github.com/benbjohnson/clock"
	"golang.org/x/sync/singleflight"
	"log/slog"
	"time"
)

type Persister interface {
	Get(key string, strategy model.Strategy) (any, bool)
	Set(key string, value any, strategy model.Strategy, ttl time.Duration) bool
	Remove(key string, strategy model.Strategy) bool
	Cleanup() int
	Stats() model.Stats
	ResetStats()
	Namespace(prefix string) *Namespace
}

type Options struct {
	Clock   clock.Clock
	Memory  *memcache.Cache
	Session tier.Store
	Local   tier.Store
	Codec   *codec.Codec

	// SnapshotTier and SnapshotKey locate the memory snapshot record.
	SnapshotTier tier.Store
	SnapshotKey  string

	// ReservedKeys are internal records callers may not read or write.
	// SnapshotKey is always reserved.
	ReservedKeys []string
}

// Service respects given ctx for every durable tier call.
type Service struct {
	ctx      context.Context
	logger   *slog.Logger
	clock    clock.Clock
	memory   *memcache.Cache
	session  tier.Store
	local    tier.Store
	codec    *codec.Codec
	counters *counters
	sf       singleflight.Group

	snapshotTier tier.Store
	snapshotKey  string
	reserved     map[string]struct{}
}

func New(ctx context.Context, logger *slog.Logger, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Memory == nil {
		opts.Memory = memcache.New(opts.Clock, 0)
	}
	if opts.Codec == nil {
		opts.Codec = codec.New(nil)
	}
	if opts.SnapshotTier == nil {
		opts.SnapshotTier = opts.Session
	}
	reserved := make(map[string]struct{}, len(opts.ReservedKeys)+1)
	for _, k := range append(opts.ReservedKeys, opts.SnapshotKey) {
		if k != "" {
			reserved[k] = struct{}{}
		}
	}
	return &Service{
		ctx:          ctx,
		logger:       logger,
		clock:        opts.Clock,
		memory:       opts.Memory,
		session:      opts.Session,
		local:        opts.Local,
		codec:        opts.Codec,
		counters:     newCounters(),
		snapshotTier: opts.SnapshotTier,
		snapshotKey:  opts.SnapshotKey,
		reserved:     reserved,
	}
}

// Get looks key up in the tiers of strategy, memory first.
// A durable hit under a hybrid strategy is copied back into memory.
func (s *Service) Get(key string, strategy model.Strategy) (any, bool) {
	if !strategy.Valid() {
		s.logger.Warn("cache get with unknown strategy", "key", key, "strategy", strategy)
		s.counters.misses.Add(1)
		return nil, false
	}
	if !s.usableKey("get", key) {
		s.counters.misses.Add(1)
		return nil, false
	}

	if strategy.UsesMemory() {
		if v, ok := s.memory.Get(key); ok {
			s.counters.hits.Add(1)
			return v, true
		}
	}

	for _, store := range s.durableTiers(strategy) {
		if store == nil {
			continue
		}
		if v, ok := s.readThrough(store, key, strategy); ok {
			s.counters.hits.Add(1)
			return v, true
		}
	}

	s.counters.misses.Add(1)
	return nil, false
}

// Set writes value to every tier of strategy. All tiers are attempted; it
// returns false if any of them failed, without rolling back the others.
func (s *Service) Set(key string, value any, strategy model.Strategy, ttl time.Duration) bool {
	s.counters.sets.Add(1)
	if !strategy.Valid() {
		s.logger.Warn("cache set with unknown strategy", "key", key, "strategy", strategy)
		return false
	}
	if !s.usableKey("set", key) {
		return false
	}
	if ttl < 0 {
		ttl = model.NoTTL
	}

	ok := true
	if strategy.UsesMemory() {
		s.memory.Set(key, value, ttl)
	}

	stores := s.durableTiers(strategy)
	if len(stores) == 0 {
		return ok
	}

	payload, err := s.codec.Encode(value, s.clock.Now(), ttl)
	if err != nil {
		s.logger.Warn("cache set: value is not serializable", "key", key, "strategy", strategy, "err", err)
		return false
	}
	for _, store := range stores {
		if store == nil {
			s.logger.Warn("cache set: tier is not configured", "key", key, "strategy", strategy)
			ok = false
			continue
		}
		if err = store.Write(s.ctx, key, payload); err != nil {
			s.logWriteErr(store, key, strategy, err)
			ok = false
		}
	}
	return ok
}

// Remove deletes key from every tier of strategy. Removing an absent key succeeds.
func (s *Service) Remove(key string, strategy model.Strategy) bool {
	s.counters.removes.Add(1)
	if !strategy.Valid() {
		s.logger.Warn("cache remove with unknown strategy", "key", key, "strategy", strategy)
		return false
	}
	if !s.usableKey("remove", key) {
		return false
	}

	if strategy.UsesMemory() {
		s.memory.Remove(key)
	}

	ok := true
	for _, store := range s.durableTiers(strategy) {
		if store == nil {
			continue
		}
		if err := store.Delete(s.ctx, key); err != nil {
			s.logger.Warn("cache remove failed", "tier", store.Name(), "key", key, "err", err)
			ok = false
		}
	}
	return ok
}

// Cleanup sweeps expired memory entries. Durable tiers are not swept.
func (s *Service) Cleanup() int {
	removed := s.memory.Sweep()
	if removed > 0 {
		s.logger.Debug("cache cleanup", "removed", removed, "remaining", s.memory.Len())
	}
	return removed
}

func (s *Service) Stats() model.Stats {
	hits, misses, sets, removes := s.counters.snapshot()
	return model.Stats{
		Hits:       hits,
		Misses:     misses,
		Sets:       sets,
		Removes:    removes,
		MemorySize: s.memory.Len(),
		HitRate:    model.HitRatio(hits, misses),
	}
}

func (s *Service) ResetStats() {
	s.counters.reset()
}

/**
 * Private API.
 */

// usableKey rejects empty keys and keys of internal records before any tier is touched.
func (s *Service) usableKey(op, key string) bool {
	if key == "" {
		s.logger.Warn("cache "+op+" with empty key")
		return false
	}
	if _, ok := s.reserved[key]; ok {
		s.logger.Warn("cache "+op+" on reserved key refused", "key", key)
		return false
	}
	return true
}

func (s *Service) durableTiers(strategy model.Strategy) []tier.Store {
	var stores []tier.Store
	if strategy.UsesSession() {
		stores = append(stores, s.session)
	}
	if strategy.UsesLocal() {
		stores = append(stores, s.local)
	}
	return stores
}

type readResult struct {
	value any
	found bool
}

// readThrough reads one durable tier. Concurrent reads of the same tier/key
// share a single tier round-trip.
func (s *Service) readThrough(store tier.Store, key string, strategy model.Strategy) (any, bool) {
	res, _, _ := s.sf.Do(store.Name()+"\x00"+string(strategy)+"\x00"+key, func() (any, error) {
		v, found := s.readDurable(store, key, strategy)
		return readResult{value: v, found: found}, nil
	})
	r := res.(readResult)
	return r.value, r.found
}

func (s *Service) readDurable(store tier.Store, key string, strategy model.Strategy) (any, bool) {
	data, found, err := store.Read(s.ctx, key)
	if err != nil {
		s.logger.Warn("cache read failed", "tier", store.Name(), "key", key, "err", err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	rec, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Warn("cache read: undecodable record treated as miss", "tier", store.Name(), "key", key, "err", err)
		return nil, false
	}

	now := s.clock.Now()
	if strategy.EnforcesDurableTTL() && rec.Expired(now) {
		if err = store.Delete(s.ctx, key); err != nil {
			s.logger.Warn("cache read: purge expired record failed", "tier", store.Name(), "key", key, "err", err)
		}
		return nil, false
	}

	value, err := rec.Decode()
	if err != nil {
		s.logger.Warn("cache read: undecodable value treated as miss", "tier", store.Name(), "key", key, "err", err)
		return nil, false
	}

	if strategy.UsesMemory() && !strategy.IsDirect() {
		s.memory.Set(key, value, warmTTL(strategy, rec, now))
	}
	return value, true
}

// warmTTL is the memory TTL of a value promoted from a durable tier.
// Hybrid strategies use the medium preset; the TTL strategy keeps what is left of the written TTL.
func warmTTL(strategy model.Strategy, rec codec.Record, now time.Time) time.Duration {
	if !strategy.EnforcesDurableTTL() {
		return model.DefaultTTL
	}
	if rec.TTL <= 0 {
		return model.NoTTL
	}
	return rec.Remaining(now)
}

func (s *Service) logWriteErr(store tier.Store, key string, strategy model.Strategy, err error) {
	kind := "io"
	switch {
	case errors.Is(err, tier.ErrQuotaExceeded):
		kind = "quota"
	case errors.Is(err, codec.ErrSerialization):
		kind = "serialization"
	}
	s.logger.Warn("cache write failed", "tier", store.Name(), "key", key, "strategy", strategy, "kind", kind, "err", err)
}

var _ Persister = (*Service)(nil)

package persistence

import (
	"context"
	"errors"
	"fmt"
	"github.com/MoonWalka/app-booking-2-sub010/internal/codec"
	"github.com/MoonWalka/app-booking-2-sub010/internal/memcache"
	"github.com/MoonWalka/app-booking-2-sub010/internal/shared/bytes"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"time"
)

var tracer = otel.Tracer("github.com/MoonWalka/app-booking-2-sub010/internal/persistence")

var errSnapshotNotConfigured = errors.New("snapshot tier is not configured")

// Snapshot writes the whole memory tier to the snapshot tier.
// Entries whose value cannot be serialized are skipped and counted.
func (s *Service) Snapshot(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "persistence.Snapshot")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if s.snapshotTier == nil || s.snapshotKey == "" {
		return errSnapshotNotConfigured
	}

	start := time.Now()
	entries := s.memory.SnapshotAll()
	snap := codec.NewSnapshot(s.clock.Now(), len(entries))

	var skipped int
	for key, e := range entries {
		rec, recErr := codec.NewRecord(e.Value, e.WrittenAt, e.TTL)
		if recErr != nil {
			skipped++
			continue
		}
		snap.Entries[key] = rec
	}

	data, err := s.codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode memory snapshot: %w", err)
	}
	if err = s.snapshotTier.Write(ctx, s.snapshotKey, data); err != nil {
		return fmt.Errorf("write memory snapshot to %s: %w", s.snapshotTier.Name(), err)
	}

	span.SetAttributes(
		attribute.Int("snapshot.entries", len(snap.Entries)),
		attribute.Int("snapshot.skipped", skipped),
		attribute.Int("snapshot.bytes", len(data)),
	)
	log.Info().
		Int("written", len(snap.Entries)).
		Int("skipped", skipped).
		Str("tier", s.snapshotTier.Name()).
		Str("size", bytes.FmtMem(int64(len(data)))).
		Str("elapsed", time.Since(start).String()).
		Msg("memory snapshot written")

	return nil
}

// Restore merges the memory snapshot back and deletes it so it is applied once.
// A missing snapshot is not an error. A snapshot of an unknown version is left in place.
func (s *Service) Restore(ctx context.Context) (restored int, err error) {
	ctx, span := tracer.Start(ctx, "persistence.Restore")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("snapshot.restored", restored))
		span.End()
	}()

	if s.snapshotTier == nil || s.snapshotKey == "" {
		return 0, errSnapshotNotConfigured
	}

	start := time.Now()
	data, found, err := s.snapshotTier.Read(ctx, s.snapshotKey)
	if err != nil {
		return 0, fmt.Errorf("read memory snapshot from %s: %w", s.snapshotTier.Name(), err)
	}
	if !found {
		return 0, nil
	}

	snap, err := s.codec.DecodeSnapshot(data)
	if err != nil {
		if !errors.Is(err, codec.ErrUnsupportedVersion) {
			s.dropSnapshot(ctx)
		}
		return 0, fmt.Errorf("decode memory snapshot: %w", err)
	}

	entries := make(map[string]memcache.Entry, len(snap.Entries))
	var failures int
	for key, rec := range snap.Entries {
		v, decErr := rec.Decode()
		if decErr != nil {
			failures++
			continue
		}
		entries[key] = memcache.Entry{Value: v, WrittenAt: rec.Written(), TTL: rec.Lifetime()}
	}
	restored = s.memory.Restore(entries)
	s.dropSnapshot(ctx)

	log.Info().
		Int("restored", restored).
		Int("fails", failures).
		Str("taken_at", time.UnixMilli(snap.TakenAt).UTC().Format(time.RFC3339)).
		Str("elapsed", time.Since(start).String()).
		Msg("restoring memory snapshot")

	return restored, nil
}

func (s *Service) dropSnapshot(ctx context.Context) {
	if err := s.snapshotTier.Delete(ctx, s.snapshotKey); err != nil {
		s.logger.Warn("drop memory snapshot failed", "tier", s.snapshotTier.Name(), "err", err)
	}
}

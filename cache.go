// Package tiercache wires the multi-tier cache and the network stabilizer
// of one session: memory, session and long-lived tiers behind the
// persistence façade, the periodic janitor, stats telemetry and the safe
// reload controller.
package tiercache

import (
	"context"
	"errors"
	"fmt"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/MoonWalka/app-booking-2-sub010/internal/codec"
	"github.com/MoonWalka/app-booking-2-sub010/internal/janitor"
	"github.com/MoonWalka/app-booking-2-sub010/internal/memcache"
	"github.com/MoonWalka/app-booking-2-sub010/internal/persistence"
	"github.com/MoonWalka/app-booking-2-sub010/internal/stabilizer"
	"github.com/MoonWalka/app-booking-2-sub010/internal/telemetry"
	"github.com/MoonWalka/app-booking-2-sub010/internal/tier"
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

type TierCache interface {
	Persistence() *persistence.Service
	Stabilizer() *stabilizer.Stabilizer
	SessionID() string
	io.Closer
}

type Service struct {
	cfg         *config.Cache
	logger      *slog.Logger
	sessionID   string
	session     tier.Store
	local       tier.Store
	persistence *persistence.Service
	stabilizer  *stabilizer.Stabilizer
	janitor     janitor.Janitor
	telemetry   telemetry.Logger
	cls         context.CancelFunc
	closeOnce   sync.Once
	closeErr    error
}

// New opens the durable tiers, restores the memory snapshot and the reload
// budget left by a previous process of the same session, and starts the
// background workers. A nil cfg means config.Default(). recovery may be nil,
// reloads are then only logged.
func New(ctx context.Context, cfg *config.Cache, logger *slog.Logger, recovery stabilizer.RecoveryAction) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	} else {
		cfg.AdjustConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tiercache config: %w", err)
	}

	sessionID := cfg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	session, err := openTier(config.TierSession, cfg.Session, sessionID)
	if err != nil {
		return nil, err
	}
	local, err := openTier(config.TierLocal, cfg.Local, sessionID)
	if err != nil {
		_ = session.Close()
		return nil, err
	}

	snapshotTier := session
	if cfg.Snapshot.Tier == config.TierLocal {
		snapshotTier = local
	}

	ctx, cancel := context.WithCancel(ctx)
	clk := clock.New()

	svc := persistence.New(ctx, logger, persistence.Options{
		Clock:        clk,
		Memory:       memcache.New(clk, cfg.Memory.Shards),
		Session:      session,
		Local:        local,
		Codec:        codec.New(cfg.Compression),
		SnapshotTier: snapshotTier,
		SnapshotKey:  cfg.Snapshot.Key,
		ReservedKeys: []string{cfg.Stabilizer.StateKey},
	})
	if _, err = svc.Restore(ctx); err != nil {
		logger.Warn("memory snapshot not restored", "err", err)
	}

	stab := stabilizer.New(ctx, cfg.Stabilizer, logger, stabilizer.Options{
		Clock:       clk,
		Recovery:    recovery,
		Snapshotter: svc,
		StateStore:  session,
		Session:     sessionID,
	})
	if err = stab.Rehydrate(ctx); err != nil {
		logger.Warn("network state not rehydrated", "err", err)
	}

	jan := janitor.New(ctx, cfg.Cleanup, logger, clk, svc)
	tel := telemetry.New(ctx, cfg.Telemetry, logger, clk, svc, jan, stab)

	logger.Info("tiercache is ready",
		"session", sessionID,
		"session_tier", cfg.Session.Backend,
		"local_tier", cfg.Local.Backend,
		"snapshot_tier", cfg.Snapshot.Tier,
		"reload_attempts", stab.State().ReloadAttempts,
	)

	return &Service{
		cfg:         cfg,
		logger:      logger,
		sessionID:   sessionID,
		session:     session,
		local:       local,
		persistence: svc,
		stabilizer:  stab,
		janitor:     jan,
		telemetry:   tel,
		cls:         cancel,
	}, nil
}

func (s *Service) Persistence() *persistence.Service { return s.persistence }

func (s *Service) Stabilizer() *stabilizer.Stabilizer { return s.stabilizer }

// SessionID identifies the session; a process started by a safe reload must reuse it.
func (s *Service) SessionID() string { return s.sessionID }

// Close stops the workers, runs the final sweep, closes the tiers and removes
// ephemeral ones. It is idempotent.
func (s *Service) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		errs = append(errs, s.stabilizer.Close(), s.telemetry.Close(), s.janitor.Close())
		s.cls()

		errs = append(errs, closeTier(s.session, s.cfg.Session.Ephemeral), closeTier(s.local, s.cfg.Local.Ephemeral))
		s.closeErr = errors.Join(errs...)
		s.logger.Info("tiercache is closed", "session", s.sessionID)
	})
	return s.closeErr
}

/**
 * Private API.
 */

func openTier(name config.TierName, cfg config.TierCfg, sessionID string) (tier.Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return tier.NewMemory(string(name), cfg.QuotaBytes), nil
	case config.BackendFile:
		dir := cfg.Dir
		if dir == "" {
			dir = defaultDir(name, sessionID)
		}
		store, err := tier.OpenFile(string(name), dir, cfg.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("open %s tier: %w", name, err)
		}
		return store, nil
	case config.BackendSQLite:
		store, err := tier.OpenSQLite(string(name), cfg.Path, cfg.QuotaBytes)
		if err != nil {
			return nil, fmt.Errorf("open %s tier: %w", name, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("open %s tier: unknown backend %q", name, cfg.Backend)
	}
}

// defaultDir is a per-session directory for the session tier and a shared one for the local tier.
func defaultDir(name config.TierName, sessionID string) string {
	if name == config.TierSession {
		return filepath.Join(os.TempDir(), "tiercache-session-"+sessionID)
	}
	return filepath.Join(os.TempDir(), "tiercache-"+string(name))
}

func closeTier(store tier.Store, ephemeral bool) error {
	if ephemeral {
		if d, ok := store.(tier.Destroyer); ok {
			return d.Destroy()
		}
	}
	return store.Close()
}

// Package stabilizer turns network-class runtime failures into a bounded
// number of safe reloads.
//
// The host feeds it signals (errors, rejections, online/offline) through
// Handle* calls or a channel given to Run. Network failures trigger SafeReload,
// which snapshots the memory tier and invokes the injected RecoveryAction,
// at most MaxReloadAttempts times per session and never twice within
// MinReloadInterval. Handlers never panic.
package stabilizer

import (
	"context"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/MoonWalka/app-booking-2-sub010/internal/shared/rate"
	"github.com/MoonWalka/app-booking-2-sub010/internal/tier"
	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"log/slog"
	"sync"
	"time"
)

const (
	MaxReloadAttempts = config.DefaultMaxReloadAttempts
	MinReloadInterval = config.DefaultMinReloadInterval
	OnlineGrace       = config.DefaultOnlineGrace
)

var tracer = otel.Tracer("github.com/MoonWalka/app-booking-2-sub010/internal/stabilizer")

// RecoveryAction restarts the host (process re-exec, page reload...).
type RecoveryAction interface {
	Recover(ctx context.Context) error
}

// RecoveryFunc adapts a function to RecoveryAction.
type RecoveryFunc func(ctx context.Context) error

func (f RecoveryFunc) Recover(ctx context.Context) error { return f(ctx) }

// Snapshotter persists the memory tier before a reload.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

// Decision is the outcome of HandleError.
type Decision uint8

const (
	// DecisionIgnored: excluded error, no recovery.
	DecisionIgnored Decision = iota
	// DecisionUnhandled: not a network error, the caller must propagate it.
	DecisionUnhandled
	// DecisionSuppressed: network error, but the reload budget did not allow a reload.
	DecisionSuppressed
	// DecisionReloaded: a safe reload was issued.
	DecisionReloaded
)

func (d Decision) String() string {
	switch d {
	case DecisionIgnored:
		return "ignored"
	case DecisionUnhandled:
		return "unhandled"
	case DecisionSuppressed:
		return "suppressed"
	case DecisionReloaded:
		return "reloaded"
	default:
		return "unknown"
	}
}

type Options struct {
	Clock       clock.Clock
	Recovery    RecoveryAction
	Snapshotter Snapshotter

	// StateStore keeps NetworkState of the session; used when cfg.PersistState is set.
	StateStore tier.Store
	Session    string
}

type Stabilizer struct {
	ctx         context.Context
	cancel      context.CancelFunc
	cfg         *config.StabilizerCfg
	logger      *slog.Logger
	clock       clock.Clock
	classifier  *Classifier
	recovery    RecoveryAction
	snapshotter Snapshotter
	states      *stateStore
	session     string

	mu        sync.Mutex
	state     NetworkState
	pending   *clock.Timer
	onlineGen uint64
	closed    bool
}

func New(ctx context.Context, cfg *config.StabilizerCfg, logger *slog.Logger, opts Options) *Stabilizer {
	if !cfg.Enabled() {
		cfg = config.Default().Stabilizer
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Recovery == nil {
		opts.Recovery = RecoveryFunc(func(context.Context) error {
			logger.Warn("safe reload requested but no recovery action is configured")
			return nil
		})
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Stabilizer{
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
		logger:      logger,
		clock:       opts.Clock,
		classifier:  NewClassifier(cfg.NetworkKeywords, cfg.ExcludedPatterns),
		recovery:    opts.Recovery,
		snapshotter: opts.Snapshotter,
		session:     opts.Session,
		state:       NetworkState{Session: opts.Session},
	}
	if cfg.PersistState && opts.StateStore != nil {
		s.states = &stateStore{store: opts.StateStore, key: cfg.StateKey}
	}
	return s
}

// Rehydrate loads the NetworkState persisted by a previous process of the same session.
// State of another session is ignored.
func (s *Stabilizer) Rehydrate(ctx context.Context) error {
	if s.states == nil {
		return nil
	}
	st, found, err := s.states.load(ctx)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if st.Session != s.session {
		s.logger.Info("network state of another session ignored", "stored", st.Session, "current", s.session)
		return nil
	}

	s.mu.Lock()
	s.state = st
	s.mu.Unlock()

	s.logger.Info("network state rehydrated",
		"reload_attempts", st.ReloadAttempts,
		"last_reload", st.LastReloadTime.Format(time.RFC3339),
	)
	return nil
}

// State returns a copy of the current NetworkState.
func (s *Stabilizer) State() NetworkState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Classify exposes the classifier used by HandleError.
func (s *Stabilizer) Classify(err error) Class {
	return s.classifier.Classify(err)
}

// CanReload reports whether the reload budget allows a reload now.
func (s *Stabilizer) CanReload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canReloadLocked(s.clock.Now())
}

// SafeReload counts an attempt, persists the state, snapshots the memory tier
// and invokes the recovery action. It returns false without side effects when
// the budget does not allow a reload, and false when the recovery action fails
// (the attempt stays counted).
func (s *Stabilizer) SafeReload(ctx context.Context) (reloaded bool) {
	ctx, span := tracer.Start(ctx, "stabilizer.SafeReload", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("safe reload panicked", "panic", r)
			span.SetStatus(codes.Error, "panic")
			reloaded = false
		}
		span.SetAttributes(attribute.Bool("reload.issued", reloaded))
		span.End()
	}()

	s.mu.Lock()
	now := s.clock.Now()
	if !s.canReloadLocked(now) {
		st := s.state
		s.mu.Unlock()
		s.logger.Warn("safe reload suppressed",
			"reload_attempts", st.ReloadAttempts,
			"max_reload_attempts", s.cfg.MaxReloadAttempts,
			"since_last", sinceLast(st, now),
		)
		return false
	}
	s.state.ReloadAttempts++
	s.state.LastReloadTime = now
	s.state.Session = s.session
	st := s.state
	s.mu.Unlock()

	span.SetAttributes(attribute.Int("reload.attempt", st.ReloadAttempts))

	if s.states != nil {
		if err := s.states.save(ctx, st); err != nil {
			s.logger.Warn("persist network state failed", "err", err)
		}
	}
	if s.snapshotter != nil {
		if err := s.snapshotter.Snapshot(ctx); err != nil {
			span.RecordError(err)
			s.logger.Warn("memory snapshot before reload failed, reloading anyway", "err", err)
		}
	}

	s.logger.Warn("issuing safe reload", "attempt", st.ReloadAttempts, "max_reload_attempts", s.cfg.MaxReloadAttempts)
	if err := s.recovery.Recover(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("recovery action failed", "attempt", st.ReloadAttempts, "err", err)
		return false
	}
	return true
}

// HandleError classifies err and issues a safe reload for network failures.
func (s *Stabilizer) HandleError(err error) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stabilizer error handler panicked", "panic", r)
			d = DecisionUnhandled
		}
	}()

	switch class := s.classifier.Classify(err); class {
	case ClassExcluded:
		s.logger.Info("excluded runtime error ignored by stabilizer", "err", err)
		return DecisionIgnored
	case ClassUnclassified:
		return DecisionUnhandled
	}

	s.logger.Warn("network error detected", "err", err)
	if s.SafeReload(s.ctx) {
		return DecisionReloaded
	}
	return DecisionSuppressed
}

// HandleOffline only logs: a reload cannot succeed while offline.
// A reload scheduled by a previous online signal is cancelled.
func (s *Stabilizer) HandleOffline() {
	s.mu.Lock()
	cancelled := s.stopPendingLocked()
	s.mu.Unlock()

	s.logger.Warn("connection lost, recovery paused", "pending_reload_cancelled", cancelled)
}

// HandleOnline schedules a safe reload after the online grace period.
// A newer online signal replaces the pending one.
func (s *Stabilizer) HandleOnline() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("stabilizer online handler panicked", "panic", r)
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.stopPendingLocked()
	s.onlineGen++
	gen := s.onlineGen
	s.pending = s.clock.AfterFunc(s.cfg.OnlineGrace, func() { s.onlineReload(gen) })

	s.logger.Info("connection restored, reload scheduled", "grace", s.cfg.OnlineGrace.String())
}

// Dispatch routes one signal to its handler.
func (s *Stabilizer) Dispatch(sig Signal) {
	switch sig.Kind {
	case SignalError, SignalRejection:
		if d := s.HandleError(sig.Err); d == DecisionUnhandled {
			s.logger.Debug("runtime error left to the host", "signal", sig.Kind.String(), "err", sig.Err)
		}
	case SignalOnline:
		s.HandleOnline()
	case SignalOffline:
		s.HandleOffline()
	default:
		s.logger.Warn("unknown stabilizer signal", "kind", uint8(sig.Kind))
	}
}

// Run consumes signals until ctx is done, the channel is closed or the
// stabilizer is closed. Intake is throttled to SignalsPerSec.
func (s *Stabilizer) Run(ctx context.Context, signals <-chan Signal) error {
	throttle := rate.NewThrottle(s.cfg.SignalsPerSec)

	s.logger.Info("stabilizer is running", "signals_per_sec", throttle.Limit())
	defer s.logger.Info("stabilizer is stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.ctx.Done():
			return nil
		case sig, ok := <-signals:
			if !ok {
				return nil
			}
			if err := throttle.Wait(ctx); err != nil {
				return err
			}
			s.Dispatch(sig)
		}
	}
}

// Close cancels a pending online reload and stops Run.
func (s *Stabilizer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.stopPendingLocked()
	s.mu.Unlock()

	s.cancel()
	return nil
}

/**
 * Private API.
 */

func (s *Stabilizer) canReloadLocked(now time.Time) bool {
	if s.state.ReloadAttempts >= s.cfg.MaxReloadAttempts {
		return false
	}
	return s.state.NeverReloaded() || now.Sub(s.state.LastReloadTime) >= s.cfg.MinReloadInterval
}

func (s *Stabilizer) onlineReload(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.onlineGen {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	s.SafeReload(s.ctx)
}

func (s *Stabilizer) stopPendingLocked() bool {
	if s.pending == nil {
		return false
	}
	s.pending.Stop()
	s.pending = nil
	s.onlineGen++
	return true
}

func sinceLast(st NetworkState, now time.Time) string {
	if st.NeverReloaded() {
		return "never"
	}
	return now.Sub(st.LastReloadTime).String()
}

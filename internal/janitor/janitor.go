// Package janitor sweeps expired entries of the memory tier on a fixed period
// and once more when it is closed.
package janitor

import (
	"context"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/benbjohnson/clock"
	"log/slog"
	"sync"
)

type Cleaner interface {
	Cleanup() int
}

type Janitor interface {
	Metrics() (runs, purged int64)
	Close() error
}

type Worker struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *config.CleanupCfg
	logger   *slog.Logger
	cleaner  Cleaner
	ticker   *clock.Ticker
	counters *janitorCounters
	done     chan struct{}
	once     sync.Once
}

func New(
	ctx context.Context,
	cfg *config.CleanupCfg,
	logger *slog.Logger,
	clk clock.Clock,
	cleaner Cleaner,
) Janitor {
	if !cfg.Enabled() || cfg.Interval <= 0 {
		return &NoOpJanitor{}
	}
	if clk == nil {
		clk = clock.New()
	}

	ctx, cancel := context.WithCancel(ctx)
	return (&Worker{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		logger:   logger,
		cleaner:  cleaner,
		ticker:   clk.Ticker(cfg.Interval),
		counters: newJanitorCounters(),
		done:     make(chan struct{}),
	}).run()
}

func (w *Worker) Metrics() (runs, purged int64) {
	return w.counters.snapshot()
}

// Close stops the ticker and, if configured, runs the final sweep.
// Calling it more than once is a no-op.
func (w *Worker) Close() error {
	w.once.Do(func() {
		w.cancel()
		<-w.done
		if w.cfg.OnClose {
			w.sweep("close")
		}
	})
	return nil
}

func (w *Worker) run() *Worker {
	w.logger.Info("janitor is running", "interval", w.cfg.Interval.String(), "on_close", w.cfg.OnClose)

	go func() {
		defer close(w.done)
		defer w.ticker.Stop()
		defer w.logger.Info("janitor is stopped")

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-w.ticker.C:
				w.sweep("tick")
			}
		}
	}()

	return w
}

func (w *Worker) sweep(reason string) {
	removed := w.cleaner.Cleanup()
	w.counters.runs.Add(1)
	w.counters.purged.Add(int64(removed))
	if removed > 0 {
		w.logger.Debug("janitor swept memory tier", "reason", reason, "removed", removed)
	}
}

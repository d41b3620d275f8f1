// Package telemetry periodically logs per-interval cache activity.
package telemetry

import (
	"context"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/MoonWalka/app-booking-2-sub010/internal/janitor"
	"github.com/MoonWalka/app-booking-2-sub010/internal/stabilizer"
	"github.com/benbjohnson/clock"
	"log/slog"
	"time"
)

type Logger interface {
	Interval() time.Duration
	Close() error
}

// BudgetSource reports the reload budget of the session.
type BudgetSource interface {
	State() stabilizer.NetworkState
}

type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *slog.Logger
	sampler  sampler
	prev     snapshot
	budget   BudgetSource
	ticker   *clock.Ticker
	interval time.Duration
	done     chan struct{}
}

func New(
	ctx context.Context,
	cfg *config.TelemetryCfg,
	logger *slog.Logger,
	clk clock.Clock,
	stats StatsSource,
	jan janitor.Janitor,
	budget BudgetSource,
) Logger {
	if !cfg.Enabled() || cfg.Interval <= 0 {
		return &NoOpLogs{}
	}
	if clk == nil {
		clk = clock.New()
	}

	smp := newSampler(stats, jan)
	ctx, cancel := context.WithCancel(ctx)
	return (&Logs{
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		sampler:  smp,
		prev:     smp.snapshot(),
		budget:   budget,
		ticker:   clk.Ticker(cfg.Interval),
		interval: cfg.Interval,
		done:     make(chan struct{}),
	}).run()
}

func (l *Logs) Interval() time.Duration {
	return l.interval
}

func (l *Logs) Close() error {
	l.cancel()
	<-l.done
	return nil
}

func (l *Logs) run() *Logs {
	go l.loop()
	return l
}

func (l *Logs) loop() {
	defer close(l.done)
	defer l.ticker.Stop()

	prev := l.prev
	for {
		select {
		case <-l.ctx.Done():
			return

		case <-l.ticker.C:
			cur := l.sampler.snapshot()
			d := deltaSnapshot(prev, cur)
			prev = cur

			common := []any{"interval", l.interval.String()}

			l.logger.Info("persistence",
				append(common,
					"hits", int64(d.hits),
					"misses", int64(d.misses),
					"hit_rate", ratio(d.hits, d.misses),
					"sets", int64(d.sets),
					"removes", int64(d.removes),
					"entries", l.sampler.stats.Stats().MemorySize,
				)...,
			)

			if d.sweeps > 0 {
				l.logger.Info("janitor",
					append(common,
						"sweeps", int64(d.sweeps),
						"purged", int64(d.purged),
					)...,
				)
			}

			if l.budget != nil {
				st := l.budget.State()
				l.logger.Info("stabilizer",
					append(common,
						"reload_attempts", st.ReloadAttempts,
						"never_reloaded", st.NeverReloaded(),
					)...,
				)
			}
		}
	}
}

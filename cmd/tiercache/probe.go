package main

import (
	"context"
	"github.com/MoonWalka/app-booking-2-sub010/internal/stabilizer"
	"log/slog"
	"net"
	"time"
)

// probe dials addr on every tick and reports reachability changes.
// The first successful dial does not emit a signal; the process starts online.
type probe struct {
	addr     string
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	dialer   net.Dialer
	online   bool
}

func newProbe(addr string, interval time.Duration, logger *slog.Logger) *probe {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &probe{
		addr:     addr,
		interval: interval,
		timeout:  interval / 2,
		logger:   logger,
		online:   true,
	}
}

func (p *probe) Run(ctx context.Context, out chan<- stabilizer.Signal) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sig, changed := p.check(ctx)
			if !changed {
				continue
			}
			select {
			case out <- sig:
			case <-ctx.Done():
				return
			}
		}
	}
}

// check dials once and returns the signal to emit if reachability changed.
func (p *probe) check(ctx context.Context) (stabilizer.Signal, bool) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	reachable := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	if reachable == p.online {
		return stabilizer.Signal{}, false
	}
	p.online = reachable
	if reachable {
		p.logger.Info("probe: upstream reachable again", "addr", p.addr)
		return stabilizer.OnlineSignal(), true
	}
	p.logger.Warn("probe: upstream unreachable", "addr", p.addr, "err", err)
	return stabilizer.OfflineSignal(), true
}

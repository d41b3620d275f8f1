// Package main runs a tiercache session next to a connectivity probe.
//
// The probe turns reachability changes of an upstream address into
// online/offline signals for the stabilizer. A safe reload re-executes the
// binary with the same session id, so the new process restores the memory
// snapshot and the reload budget.
package main

import (
	"context"
	"flag"
	tiercache "github.com/MoonWalka/app-booking-2-sub010"
	"github.com/MoonWalka/app-booking-2-sub010/config"
	"github.com/MoonWalka/app-booking-2-sub010/internal/stabilizer"
	"github.com/MoonWalka/app-booking-2-sub010/internal/tracing"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	var (
		configPath    = flag.String("config", "", "path to the yaml config (defaults + TIERCACHE_* env when empty)")
		probeAddr     = flag.String("probe", "", "host:port whose reachability drives online/offline signals")
		probeInterval = flag.Duration("probe-interval", 5*time.Second, "connectivity probe period")
		debug         = flag.Bool("debug", false, "enable debug logs")
	)
	flag.Parse()

	level := slog.LevelInfo
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		level = slog.LevelDebug
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "tiercache").Logger()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).With("service", "tiercache")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, "tiercache")
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	reexec := &reexecRecovery{logger: logger}
	svc, err := tiercache.New(ctx, cfg, logger, reexec)
	if err != nil {
		logger.Error("start tiercache", "err", err)
		os.Exit(1)
	}
	reexec.sessionID = svc.SessionID()

	signals := make(chan stabilizer.Signal, 16)
	if *probeAddr != "" {
		go newProbe(*probeAddr, *probeInterval, logger).Run(ctx, signals)
	}
	go func() {
		if err := svc.Stabilizer().Run(ctx, signals); err != nil && ctx.Err() == nil {
			logger.Error("stabilizer stopped", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	if err = svc.Close(); err != nil {
		logger.Error("close tiercache", "err", err)
	}
}

func loadConfig(path string) (*config.Cache, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	cfg := &config.Cache{
		Cleanup:   &config.CleanupCfg{OnClose: true},
		Telemetry: &config.TelemetryCfg{},
		Stabilizer: &config.StabilizerCfg{
			PersistState: true,
		},
	}
	if err := config.ParseEnv(cfg); err != nil {
		return nil, err
	}
	cfg.AdjustConfig()
	return cfg, cfg.Validate()
}

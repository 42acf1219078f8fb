package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/app"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/config"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	// LOG_LEVEL is read again through config, but init early so config errors are visible
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Errorf("failed to load config: %v", err)
		return app.FailureExitCode
	}
	logger.Init(cfg.Log.Level)
	logger.SetTimestamps(cfg.Log.Timestamps)
	logger.Debugf("config loaded: source=%s identities=%d redis=%v metrics=%v",
		cfg.Source, len(cfg.Identities), cfg.Redis.Addr() != "", cfg.Metrics.TextfilePath != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Errorf("failed to initialize: %v", err)
		return app.FailureExitCode
	}
	defer func() { _ = a.Close() }()

	return app.ExitCode(a.Run(ctx))
}

package app

import (
	"context"
	"path/filepath"

	"github.com/futuretech6/youth-zhejiang-check-in/internal/batch"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/checkin"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/config"
	"github.com/futuretech6/youth-zhejiang-check-in/internal/history"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/logger"
	"github.com/futuretech6/youth-zhejiang-check-in/pkg/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// FailureExitCode is returned for any aborted batch.
const FailureExitCode = -1

// App wires configuration, the remote client, history and metrics together.
type App struct {
	cfg      *config.Config
	runID    string
	runner   *batch.Runner
	registry *prometheus.Registry
	redis    *redis.Client
}

// New builds the application. Redis is optional; when it is configured but
// unreachable the run continues without history.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		cfg:      cfg,
		runID:    uuid.NewString(),
		registry: prometheus.NewRegistry(),
	}
	metrics.RegisterCollectors(a.registry)

	var store history.Store = history.NopStore{}
	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis %s unreachable, history disabled: %v", addr, err)
			_ = client.Close()
		} else {
			a.redis = client
			store = history.NewRedisStore(client, "checkin:", cfg.Redis.HistoryTTL)
			logger.Debugf("history stored in redis %s", addr)
		}
	}

	client := checkin.NewClient(cfg.Profile, cfg.HTTP)
	flow := checkin.NewFlow(client, cfg.Verbose)
	a.runner = batch.NewRunner(flow, store, batch.Options{
		RunID:           a.runID,
		ContinueOnError: cfg.Batch.ContinueOnError,
		SkipDoneToday:   cfg.Batch.SkipDoneToday,
	})
	return a, nil
}

// Run checks in every configured identity and exports metrics.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.Source == config.SourceEnv {
		logger.Info("Reading openid from environ")
	} else {
		logger.Infof("Reading openid from %s", filepath.Base(a.cfg.UsersPath))
	}
	logger.Debugf("run %s: %d identities", a.runID, len(a.cfg.Identities))

	err := a.runner.Run(ctx, a.cfg.Identities)

	metrics.LastRun.SetToCurrentTime()
	if werr := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath, a.registry); werr != nil {
		logger.Warnf("write metrics %s: %v", a.cfg.Metrics.TextfilePath, werr)
	}
	return err
}

// Close releases the Redis connection if one was opened.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

// ExitCode maps the batch result to the process status.
func ExitCode(err error) int {
	if err != nil {
		return FailureExitCode
	}
	return 0
}

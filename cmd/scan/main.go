// Command scan runs one batch fraud scan and exits. It is intended to be
// invoked on a schedule (cron or an orchestrator job); the Redis lock keeps
// concurrent invocations from double-scanning a window.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/trustguard-backend/internal/infrastructure/cache"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/config"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/database"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/repository"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/trustguard-backend/internal/metrics"
	"github.com/davidleathers/trustguard-backend/internal/service/fraud"
	"github.com/davidleathers/trustguard-backend/internal/service/trust"
)

func main() {
	var (
		window  = flag.Duration("window", 0, "scan window ending now (0 uses the configured default)")
		rescore = flag.Bool("rescore", false, "also run trust rescoring after the scan")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger, *window, *rescore); err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, window time.Duration, rescore bool) error {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	pool, err := database.NewConnectionPool(&cfg.Database, zapLogger)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisCache, err := cache.NewRedisCache(&cfg.Redis, zapLogger)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	registry, err := metrics.NewRegistry("trustguard.scan")
	if err != nil {
		return err
	}

	transactions := repository.NewTransactionRepository(pool.Pool())
	flags := repository.NewFlagRepository(pool.Pool())
	profiles := repository.NewProfileRepository(pool.Pool())

	scanner := fraud.NewScanOrchestrator(transactions, flags, profiles,
		cache.NewScanLock(redisCache), scanRules(cfg.Fraud, logger), logger, registry)

	if window <= 0 {
		window = cfg.Fraud.ScanWindow
	}
	end := time.Now()
	start := end.Add(-window)

	newFlags, err := scanner.Scan(ctx, start, end)
	if err != nil {
		return err
	}
	logger.Info("scan finished", "window", window, "new_flags", len(newFlags))

	if rescore {
		trustLogs := repository.NewTrustLogRepository(pool.Pool())
		summary, err := trust.NewService(profiles, trustLogs, logger, registry).RescoreAll(ctx)
		if err != nil {
			return err
		}
		logger.Info("rescoring finished",
			"users_processed", summary.UsersProcessed,
			"users_changed", summary.UsersChanged)
	}

	return nil
}

// scanRules maps the batch-relevant config onto the rule set.
func scanRules(cfg config.FraudConfig, logger *slog.Logger) fraud.Rules {
	rules := fraud.DefaultRules()

	if cfg.PairVolumeThreshold > 0 {
		rules.PairVolumeThreshold = cfg.PairVolumeThreshold
	}
	if cfg.UnknownSenderLimit > 0 {
		rules.UnknownSenderLimit = cfg.UnknownSenderLimit
	}
	if cfg.MaxCycleHops > 0 {
		rules.MaxHops = cfg.MaxCycleHops
	}
	if cfg.Route.FromUserID != "" && cfg.Route.ToUserID != "" {
		from, errFrom := uuid.Parse(cfg.Route.FromUserID)
		to, errTo := uuid.Parse(cfg.Route.ToUserID)
		if errFrom != nil || errTo != nil {
			logger.Warn("ignoring route rule with unparseable user ids",
				"from", cfg.Route.FromUserID, "to", cfg.Route.ToUserID)
		} else {
			rules.Route = &fraud.RouteRule{FromUserID: from, ToUserID: to, Threshold: cfg.Route.Threshold}
		}
	}
	return rules
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/trustguard-backend/internal/api/rest"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/cache"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/config"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/database"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/geo"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/repository"
	"github.com/davidleathers/trustguard-backend/internal/infrastructure/telemetry"
	"github.com/davidleathers/trustguard-backend/internal/metrics"
	"github.com/davidleathers/trustguard-backend/internal/service/fraud"
	"github.com/davidleathers/trustguard-backend/internal/service/trust"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	if err := run(ctx, cfg, logger); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting trustguard backend",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port)

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

	geoResolver, err := geo.NewStaticResolverFromFile(cfg.Geo.DatabasePath)
	if err != nil {
		return err
	}

	registry, err := metrics.NewRegistry("trustguard")
	if err != nil {
		return err
	}

	profiles := repository.NewProfileRepository(pool.Pool())
	transactions := repository.NewTransactionRepository(pool.Pool())
	flags := repository.NewFlagRepository(pool.Pool())
	loginLogs := repository.NewLoginLogRepository(pool.Pool())
	presenceRecords := repository.NewPresenceRepository(pool.Pool())
	trustLogs := repository.NewTrustLogRepository(pool.Pool())

	rules := buildRules(cfg.Fraud, logger)

	fraudSvc := fraud.NewService(presenceRecords, loginLogs, transactions, profiles, geoResolver, rules, logger, registry)
	scanner := fraud.NewScanOrchestrator(transactions, flags, profiles, cache.NewScanLock(redisCache), rules, logger, registry)
	trustSvc := trust.NewService(profiles, trustLogs, logger, registry)

	handler := rest.NewHandler(rest.Services{
		Fraud:     fraudSvc,
		Scanner:   scanner,
		Trust:     trustSvc,
		Profiles:  profiles,
		TrustLogs: trustLogs,
		LoginLogs: loginLogs,
		Flags:     flags,
		Presence:  presenceRecords,
	}, cfg.Fraud.ScanWindow, logger)

	server := rest.NewServer(&cfg.Server, handler, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
		return server.Shutdown(context.Background())
	}
}

// buildRules maps config onto the rule set, keeping defaults for unset
// fields.
func buildRules(cfg config.FraudConfig, logger *slog.Logger) fraud.Rules {
	rules := fraud.DefaultRules()

	if cfg.GiftWindow > 0 {
		rules.GiftWindow = cfg.GiftWindow
	}
	if cfg.GiftThreshold > 0 {
		rules.GiftThreshold = cfg.GiftThreshold
	}
	if cfg.LoginIPWindow > 0 {
		rules.LoginIPWindow = cfg.LoginIPWindow
	}
	if cfg.LoginIPThreshold > 0 {
		rules.LoginIPThreshold = cfg.LoginIPThreshold
	}
	if cfg.CoPresenceThreshold > 0 {
		rules.CoPresenceThreshold = cfg.CoPresenceThreshold
	}
	if cfg.LoginLookback > 0 {
		rules.LoginLookback = cfg.LoginLookback
	}
	if cfg.MaxCycleHops > 0 {
		rules.MaxHops = cfg.MaxCycleHops
	}
	if cfg.PairVolumeThreshold > 0 {
		rules.PairVolumeThreshold = cfg.PairVolumeThreshold
	}
	if cfg.UnknownSenderLimit > 0 {
		rules.UnknownSenderLimit = cfg.UnknownSenderLimit
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

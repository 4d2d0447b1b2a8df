package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/departure-notifier/internal/config"
	"github.com/example/departure-notifier/internal/gateway"
	"github.com/example/departure-notifier/internal/handler"
	"github.com/example/departure-notifier/internal/infra/postgresql"
	"github.com/example/departure-notifier/internal/infra/postgresql/migrations"
	infraredis "github.com/example/departure-notifier/internal/infra/redis"
	"github.com/example/departure-notifier/internal/observability"
	"github.com/example/departure-notifier/internal/pipeline"
	"github.com/example/departure-notifier/internal/repository"
	"github.com/example/departure-notifier/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	limiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.RateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	gw, err := gateway.NewWebhookGateway(cfg.GatewayURL, cfg.GatewayTimeout)
	if err != nil {
		logger.Fatal("gateway initialization failed", zap.Error(err))
	}

	flights := repository.NewGormFlightSource(db)
	records := repository.NewGormRecordRepo(db)

	metrics := observability.NewMetrics()

	window, err := pipeline.NewWindowQuery(flights, cfg.Lookahead, logger)
	if err != nil {
		logger.Fatal("window query initialization failed", zap.Error(err))
	}
	resolver, err := pipeline.NewResolver(flights, logger)
	if err != nil {
		logger.Fatal("resolver initialization failed", zap.Error(err))
	}
	dispatcher, err := pipeline.NewDispatcher(records, gw, limiter, cfg.MaxAttempts, cfg.GatewayTimeout, logger)
	if err != nil {
		logger.Fatal("dispatcher initialization failed", zap.Error(err))
	}
	dispatcher.SetMetrics(metrics)

	orchestrator, err := pipeline.NewOrchestrator(window, resolver, dispatcher, cfg.FlightConcurrency, cfg.DispatchConcurrency, logger)
	if err != nil {
		logger.Fatal("orchestrator initialization failed", zap.Error(err))
	}
	orchestrator.SetMetrics(metrics)

	trigger, err := pipeline.NewTrigger(orchestrator, cfg.TriggerInterval, logger)
	if err != nil {
		logger.Fatal("trigger initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	if err := handler.RegisterRecordRoutes(app, records); err != nil {
		logger.Fatal("record routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return trigger.Start(groupCtx)
	})

	group.Go(func() error {
		logger.Info("departure notifier api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.Shutdown()
	})

	if err := group.Wait(); err != nil {
		logger.Error("notifier stopped with error", zap.Error(err))
	}
	logger.Info("departure notifier stopped")
}

package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/frequencyandform/outreach-pipeline/internal/config"
	"github.com/frequencyandform/outreach-pipeline/internal/cooldown"
	"github.com/frequencyandform/outreach-pipeline/internal/handler"
	"github.com/frequencyandform/outreach-pipeline/internal/infra/postgresql"
	"github.com/frequencyandform/outreach-pipeline/internal/infra/postgresql/migrations"
	infraredis "github.com/frequencyandform/outreach-pipeline/internal/infra/redis"
	"github.com/frequencyandform/outreach-pipeline/internal/observability"
	"github.com/frequencyandform/outreach-pipeline/internal/provider"
	"github.com/frequencyandform/outreach-pipeline/internal/repository"
	"github.com/frequencyandform/outreach-pipeline/internal/scheduler"
	"github.com/frequencyandform/outreach-pipeline/internal/service"
	"github.com/frequencyandform/outreach-pipeline/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

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

	messageRepo := repository.NewGormMessageRepo(db)
	recordRepo := repository.NewGormSendRecordRepo(db)

	rules := cooldown.NewRules(cooldown.DefaultRules())
	cooldownEngine, err := cooldown.NewEngine(recordRepo, rules, cfg.CooldownStrict, logger)
	if err != nil {
		logger.Fatal("cooldown engine initialization failed", zap.Error(err))
	}

	relay, err := provider.NewRelayProvider(cfg.TransportURL)
	if err != nil {
		logger.Fatal("relay provider initialization failed", zap.Error(err))
	}

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.SendRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	jobLock, err := infraredis.NewJobLock(rdb)
	if err != nil {
		logger.Fatal("job lock initialization failed", zap.Error(err))
	}

	outreachService, err := service.NewOutreachService(messageRepo, logger)
	if err != nil {
		logger.Fatal("outreach service initialization failed", zap.Error(err))
	}

	processor, err := service.NewProcessor(
		messageRepo,
		recordRepo,
		cooldownEngine,
		relay,
		rateLimiter,
		time.Duration(cfg.RetryBackoffMinutes)*time.Minute,
		time.Duration(cfg.LeaseMinutes)*time.Minute,
		logger,
	)
	if err != nil {
		logger.Fatal("processor initialization failed", zap.Error(err))
	}

	sweeper, err := service.NewLeaseSweeper(
		messageRepo,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		logger,
	)
	if err != nil {
		logger.Fatal("lease sweeper initialization failed", zap.Error(err))
	}

	invoker, err := scheduler.NewHTTPInvoker(cfg.BaseURL, cfg.CronSecret)
	if err != nil {
		logger.Fatal("job invoker initialization failed", zap.Error(err))
	}

	jobScheduler, err := scheduler.NewScheduler(
		scheduler.DefaultJobs(),
		invoker,
		jobLock,
		time.Duration(cfg.SchedulerTickSeconds)*time.Second,
		logger,
	)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	processor.SetMetrics(metrics)
	sweeper.SetMetrics(metrics)
	jobScheduler.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		AppName:      "outreach-pipeline",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterMessageRoutes(app, outreachService); err != nil {
		logger.Fatal("message routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterJobRoutes(app, processor, sweeper, cfg.CronSecret, cfg.ProcessBatchLimit, logger); err != nil {
		logger.Fatal("job routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("outreach-pipeline api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		return jobScheduler.Start(groupCtx)
	})

	group.Go(func() error {
		return sweeper.Start(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
	}
}

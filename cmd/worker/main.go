package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/gymsuite/internal/app"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/observability"
	"github.com/odyssey-erp/gymsuite/internal/platform/cache"
	"github.com/odyssey-erp/gymsuite/internal/platform/db"
	"github.com/odyssey-erp/gymsuite/internal/sms"
	"github.com/odyssey-erp/gymsuite/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PoolConfig())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := cfg.RedisOptions().AsynqOpt()
	queue := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, logger, pool, redisClient, queue, metrics)

	sweepJob := jobs.NewMembershipSweepJob(services.Membership, logger, metrics.Jobs(), cfg.Location())
	notificationJob := jobs.NewNotificationJob(
		sms.NewDeliverer(services.SMSGateway, services.SMSRepo, logger),
		mail.NewSender(cfg.MailConfig(), logger),
		logger,
		metrics.Jobs(),
	)

	schedule, err := jobs.SweepSchedule(cfg.CronRecurringInvoice, cfg.CronExpiration, cfg.CronReminder)
	if err != nil {
		logger.Error("build sweep schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Location:    cfg.Location(),
		Concurrency: cfg.WorkerConcurrency,
		Handlers:    append(sweepJob.Handlers(), notificationJob.Handlers()...),
		Cron:        schedule,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadTimeout: cfg.AppReadTimeout}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("worker metrics server", slog.Any("error", err))
			}
		}()
		defer metricsServer.Close()
	}

	logger.Info("worker started", slog.Int("cron_entries", len(schedule)))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

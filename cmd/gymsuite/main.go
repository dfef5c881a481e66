package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/gymsuite/cmd/gymsuite/cli"
	"github.com/odyssey-erp/gymsuite/internal/app"
	"github.com/odyssey-erp/gymsuite/internal/platform/cache"
	"github.com/odyssey-erp/gymsuite/internal/platform/db"
	"github.com/odyssey-erp/gymsuite/internal/auth"
	"github.com/odyssey-erp/gymsuite/internal/dashboard"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/membership"
	"github.com/odyssey-erp/gymsuite/internal/observability"
	"github.com/odyssey-erp/gymsuite/internal/reports"
	"github.com/odyssey-erp/gymsuite/internal/sms"
	"github.com/odyssey-erp/gymsuite/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobsCommand(ctx, cfg, os.Args[2:]))
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PoolConfig())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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
	services := app.NewServices(cfg, logger, dbpool, redisClient, queue, metrics)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Authenticator:     services.Auth.Middleware,
		AuthHandler:       auth.NewHandler(logger, services.Auth),
		GymHandler:        gym.NewHandler(logger, services.Gym),
		MembershipHandler: membership.NewHandler(logger, services.Membership),
		InvoiceHandler:    invoicing.NewHandler(logger, services.Invoicing),
		SMSHandler:        sms.NewHandler(logger, services.SMSRepo, services.SMSGateway),
		DashboardHandler:  dashboard.NewHandler(logger, services.Dashboard),
		ReportHandler:     reports.NewHandler(logger, services.Reports),
		JobHandler:        jobs.NewHandler(inspector, logger),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

func runJobsCommand(ctx context.Context, cfg *app.Config, args []string) int {
	jobsCLI := cli.NewJobsCLI(cfg.RedisOptions().AsynqOpt())
	defer jobsCLI.Close()
	if err := cli.RunJobs(ctx, jobsCLI, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/salon-booking-platform/cmd/mainconfig"
	"github.com/wolfman30/salon-booking-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/salon-booking-platform/internal/config"
	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/notify"
	"github.com/wolfman30/salon-booking-platform/internal/reminders"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var awsCfg *aws.Config
	if mainconfig.AWSEnabled(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	registry := prometheus.NewRegistry()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
	}
	sqlDB, err := bootstrap.BuildSQLDB(cfg)
	if err != nil {
		logger.Error("failed to open sql db", "error", err)
		os.Exit(1)
	}
	if sqlDB != nil {
		defer sqlDB.Close()
	}

	conv, err := bootstrap.BuildConversation(ctx, cfg, bootstrap.Infra{
		Redis: redisClient, Pool: pool, SQL: sqlDB, Registerer: registry,
	}, logger)
	if err != nil {
		logger.Error("failed to build conversation engine", "error", err)
		os.Exit(1)
	}
	async, err := bootstrap.BuildAsync(cfg, awsCfg, pool, logger)
	if err != nil {
		logger.Error("failed to build queue", "error", err)
		os.Exit(1)
	}
	if async.InProcess {
		logger.Warn("worker started with the in-memory queue; it will only see messages published by this process")
	}

	messenger := notify.NewLogMessenger(logger)
	worker := conversation.NewWorker(conv.Engine, async.Queue, async.Jobs, messenger, logger,
		conversation.WithWorkerCount(cfg.WorkerCount))

	scheduler, reminderClient := bootstrap.BuildReminderScheduler(cfg, logger)
	if reminderClient != nil {
		defer reminderClient.Close()
	}
	deliverer := bootstrap.BuildDeliverer(cfg, conv.Outbox, bootstrap.BuildEmailSender(cfg, awsCfg, logger),
		conv.Profiles, scheduler, registry, logger)

	var reminderServer *reminders.Server
	if scheduler != nil {
		reminderServer = reminders.NewServer(bootstrap.ReminderRedisOpt(cfg), 5,
			reminders.NewHandler(messenger, conv.Profiles, logger), logger)
		if err := reminderServer.Start(); err != nil {
			logger.Error("failed to start reminder server", "error", err)
			os.Exit(1)
		}
	}

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	worker.Start(ctx)
	go deliverer.Start(ctx)
	logger.Info("conversation worker started", "workers", cfg.WorkerCount, "reminders", scheduler != nil)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()
	if reminderServer != nil {
		reminderServer.Shutdown()
	}

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()
	_ = metricsSrv.Shutdown(doneCtx)

	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}
}

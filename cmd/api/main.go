package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/salon-booking-platform/cmd/mainconfig"
	"github.com/wolfman30/salon-booking-platform/internal/api/router"
	"github.com/wolfman30/salon-booking-platform/internal/app/bootstrap"
	"github.com/wolfman30/salon-booking-platform/internal/bookings"
	appconfig "github.com/wolfman30/salon-booking-platform/internal/config"
	"github.com/wolfman30/salon-booking-platform/internal/conversation"
	"github.com/wolfman30/salon-booking-platform/internal/events"
	"github.com/wolfman30/salon-booking-platform/internal/notify"
	"github.com/wolfman30/salon-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/salon-booking-platform/internal/salon"
	"github.com/wolfman30/salon-booking-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting salon-booking-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := setup(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.close()

	if app.worker != nil {
		app.worker.Start(ctx)
	}
	if app.deliverer != nil {
		go app.deliverer.Start(ctx)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	if app.worker != nil {
		app.worker.Wait()
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type application struct {
	handler   http.Handler
	worker    *conversation.Worker
	deliverer *events.Deliverer
	closers   []func()
}

func (a *application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// setup assembles the server. With the in-memory queue the worker and the
// outbox deliverer run inside this process.
func setup(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{}

	registry, metricsHandler := setupMetrics()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
	}
	sqlDB, err := bootstrap.BuildSQLDB(cfg)
	if err != nil {
		app.close()
		return nil, err
	}
	if sqlDB != nil {
		app.closers = append(app.closers, func() { _ = sqlDB.Close() })
	}

	awsCfg, err := loadAWS(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	conv, err := bootstrap.BuildConversation(ctx, cfg, infra(redisClient, pool, sqlDB, registry), logger)
	if err != nil {
		app.close()
		return nil, err
	}
	async, err := bootstrap.BuildAsync(cfg, awsCfg, pool, logger)
	if err != nil {
		app.close()
		return nil, err
	}

	if async.InProcess {
		app.worker = conversation.NewWorker(conv.Engine, async.Queue, async.Jobs, notify.NewLogMessenger(logger), logger,
			conversation.WithWorkerCount(cfg.WorkerCount))
		scheduler, client := bootstrap.BuildReminderScheduler(cfg, logger)
		if client != nil {
			app.closers = append(app.closers, func() { _ = client.Close() })
		}
		app.deliverer = bootstrap.BuildDeliverer(cfg, conv.Outbox, bootstrap.BuildEmailSender(cfg, awsCfg, logger),
			conv.Profiles, scheduler, registry, logger)
	}

	app.handler = router.New(&router.Config{
		Logger: logger,
		ConversationHandler: conversation.NewHandler(conv.Engine, logger,
			conversation.WithAsync(async.Publisher, async.Jobs),
			conversation.WithInboundMetrics(metrics.NewInboundMetrics(registry))),
		BookingsHandler:      bookings.NewHandler(conv.Bookings, logger),
		SalonHandler:         salon.NewHandler(conv.Profiles, logger),
		MetricsHandler:       metricsHandler,
		AdminAuthSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:   cfg.CORSOrigins,
		InboundRatePerSecond: cfg.InboundRatePerSecond,
		InboundRateBurst:     cfg.InboundRateBurst,
	})
	return app, nil
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

func infra(redisClient *redis.Client, pool *pgxpool.Pool, sqlDB *sql.DB, reg prometheus.Registerer) bootstrap.Infra {
	return bootstrap.Infra{Redis: redisClient, Pool: pool, SQL: sqlDB, Registerer: reg}
}

func loadAWS(ctx context.Context, cfg *appconfig.Config) (*aws.Config, error) {
	if !mainconfig.AWSEnabled(cfg) {
		return nil, nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &awsCfg, nil
}

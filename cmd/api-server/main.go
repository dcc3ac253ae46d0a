package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-appointment-engine/internal/api"
	"github.com/hackgods/clinic-appointment-engine/internal/appointment"
	"github.com/hackgods/clinic-appointment-engine/internal/availability"
	"github.com/hackgods/clinic-appointment-engine/internal/config"
	"github.com/hackgods/clinic-appointment-engine/internal/db"
	"github.com/hackgods/clinic-appointment-engine/internal/department"
	"github.com/hackgods/clinic-appointment-engine/internal/exception"
	"github.com/hackgods/clinic-appointment-engine/internal/logging"
	"github.com/hackgods/clinic-appointment-engine/internal/metrics"
	"github.com/hackgods/clinic-appointment-engine/internal/notify"
	redisclient "github.com/hackgods/clinic-appointment-engine/internal/redis"
	"github.com/hackgods/clinic-appointment-engine/internal/rollover"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api-server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("api-server starting", zap.String("env", cfg.Env), zap.String("http_port", cfg.HTTPPort))

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	logger.Info("connected to postgres")

	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewEngineMetrics(registry)

	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.NotifyGatewayURL != "" {
		sender = notify.NewPushSender(notify.PushSenderConfig{URL: cfg.NotifyGatewayURL}, &http.Client{Timeout: cfg.NotifyTimeout}, logger)
		logger.Info("push delivery enabled", zap.String("gateway", cfg.NotifyGatewayURL))
	}
	channels := notify.NewRedisChannelStore(rdb, 0)
	notifier := notify.NewService(channels, sender, notify.Config{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout,
	}, engineMetrics, logger)
	notifier.Start()

	apptRepo := appointment.NewPgRepository(pgPool)
	departments := department.NewService(department.NewPgRepository(pgPool), logger)
	exceptions := exception.NewManager(exception.NewPgRepository(pgPool), departments, logger)

	resolverOpts := []availability.Option{
		availability.WithMetrics(engineMetrics),
		availability.WithLogger(logger),
	}
	if cfg.AvailabilityCountBooked {
		resolverOpts = append(resolverOpts, availability.WithOccupyingStatuses(
			append([]appointment.Status{appointment.StatusBooked}, appointment.OccupyingStatuses...)...))
	}
	resolver := availability.NewResolver(departments, apptRepo, exceptions, resolverOpts...)

	appointments := appointment.NewService(appointment.Dependencies{
		Repo:        apptRepo,
		Departments: departments,
		Slots:       resolver,
		Locker:      redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		Notifier:    notifier,
		Metrics:     engineMetrics,
		Logger:      logger,
	}, appointment.Config{
		Location:           loc,
		NotifyTimeout:      cfg.NotifyTimeout,
		RevalidateOnUpdate: cfg.RevalidateOnUpdate,
	})

	// Not started here; the rollover worker owns the cron loop and this
	// instance only serves the manual admin trigger.
	roller := rollover.NewScheduler(appointments, rollover.Config{
		Location: loc,
		Timeout:  cfg.RolloverTimeout,
	}, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments: appointments,
		Availability: resolver,
		Departments:  departments,
		Exceptions:   exceptions,
		Channels:     channels,
		Rollover:     roller,
		Postgres:     pgPool,
		Redis:        api.RedisPinger(rdb),
		Gatherer:     registry,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		logger.Warn("notification queue not drained", zap.Error(err))
	}

	logger.Info("api-server stopped")
	return nil
}

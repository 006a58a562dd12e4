// Package main runs the periodic batch dispatch engine: no request-response
// API, just a scheduler that wakes up on an interval, matches every pending
// passenger and delivery request into trips, and serves a thin ops surface
// (/healthz, /readyz, /metrics) for the process running it. Grounded on
// cmd/server/main.go's wiring and graceful-shutdown shape, adapted from an
// HTTP-request-serving process to a round-driven one.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ride-dispatch-engine/internal/assembler"
	"ride-dispatch-engine/internal/config"
	"ride-dispatch-engine/internal/database"
	"ride-dispatch-engine/internal/driverregistry"
	"ride-dispatch-engine/internal/logging"
	"ride-dispatch-engine/internal/notifier"
	"ride-dispatch-engine/internal/observability"
	"ride-dispatch-engine/internal/requeststore"
	"ride-dispatch-engine/internal/retry"
	"ride-dispatch-engine/internal/router"
	"ride-dispatch-engine/internal/scheduler"
	"ride-dispatch-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	logger.WithFields(logging.Fields{
		"version": "1.0.0",
		"mode":    cfg.Server.Mode,
	}).Info("starting dispatch engine")

	db, err := database.NewPostgresConnection(&cfg.Database, logger)
	if err != nil {
		logger.WithFields(logging.Fields{
			"host": cfg.Database.Host,
			"port": cfg.Database.Port,
			"name": cfg.Database.DBName,
		}).WithError(err).Fatal("failed to connect to database")
	}
	if err := db.HealthCheck(context.Background()); err != nil {
		logger.WithError(err).Fatal("database health check failed")
	}
	logger.Info("database connection established")

	redisClient, err := database.NewRedisConnection(&cfg.Redis, logger)
	if err != nil {
		logger.WithFields(logging.Fields{
			"host": cfg.Redis.Host,
			"port": cfg.Redis.Port,
			"db":   cfg.Redis.DB,
		}).WithError(err).Fatal("failed to connect to redis")
	}
	if err := redisClient.HealthCheck(context.Background()); err != nil {
		logger.WithError(err).Fatal("redis health check failed")
	}
	logger.Info("redis connection established")

	notify := notifier.New(redisClient)
	store := requeststore.New(db, notify)
	drivers := driverregistry.New(db, redisClient)

	retryCooldown := time.Duration(cfg.Dispatch.RetryCooldownMinutes) * time.Minute
	retries := retry.NewRegistry(retryCooldown, nil)

	roundMetrics, err := observability.NewRoundMetrics(context.Background(), &cfg.OpenTelemetry, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize round metrics")
	}
	if err := roundMetrics.ObserveRetryDepth(roundMetrics.Meter(), func() int64 { return int64(retries.Len()) }); err != nil {
		logger.WithError(err).Fatal("failed to register retry queue depth gauge")
	}

	poolSize := cfg.Actor.MaxActors
	if poolSize <= 0 || poolSize > 64 {
		poolSize = 8 // a dispatch round has at most a few hundred groups; 64 concurrent assemblers is already generous
	}
	pool := worker.New(poolSize, logger)
	if err := pool.Start(context.Background()); err != nil {
		logger.WithError(err).Fatal("failed to start worker pool")
	}

	assemble := assembler.New(store, drivers, cfg.Dispatch, nil)

	eng := &engine{
		store:    store,
		drivers:  drivers,
		notifier: notify,
		retries:  retries,
		metrics:  roundMetrics,
		pool:     pool,
		assemble: assemble,
		cfg:      cfg.Dispatch,
		logger:   logger.WithComponent("dispatch_round"),
	}

	interval := time.Duration(cfg.Dispatch.IntervalSeconds) * time.Second
	roundDeadline := time.Duration(cfg.Dispatch.RoundDeadlineSeconds) * time.Second
	if floor := max(3*interval, 60*time.Second); roundDeadline < floor {
		roundDeadline = floor
	}
	sched := scheduler.New(interval, roundDeadline, nil, logger)

	ginEngine := router.New(&router.Dependencies{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Redis:  redisClient,
	})
	server := &http.Server{
		Addr:           fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:        ginEngine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	schedCtx, schedCancel := context.WithCancel(context.Background())
	go sched.Run(schedCtx, eng.run)

	go func() {
		logger.WithFields(logging.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("starting ops http server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("ops http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down dispatch engine...")
	performGracefulShutdown(server, schedCancel, sched, pool, roundMetrics, db, redisClient, logger)
	logger.Info("dispatch engine shutdown completed")
}

// performGracefulShutdown stops every long-lived service within its own
// timeout budget, grounded on cmd/server/main.go's performGracefulShutdown
// shape (buffered error channel plus one goroutine per service), adapted to
// the round-driven set: HTTP server, scheduler, worker pool, round metrics,
// database, redis.
func performGracefulShutdown(
	server *http.Server,
	schedCancel context.CancelFunc,
	sched *scheduler.Scheduler,
	pool *worker.Pool,
	roundMetrics *observability.RoundMetrics,
	db *database.PostgresDB,
	redisClient *database.RedisClient,
	logger *logging.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer shutdownCancel()

	errorChan := make(chan error, 6)
	var shutdownWg sync.WaitGroup

	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		logger.Info("shutting down ops http server...")
		serverCtx, serverCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer serverCancel()
		if err := server.Shutdown(serverCtx); err != nil {
			errorChan <- fmt.Errorf("http server shutdown error: %w", err)
			logger.WithError(err).Error("http server forced to shutdown")
		} else {
			logger.Info("ops http server shutdown completed")
		}
	}()

	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		logger.Info("stopping scheduler...")
		schedCancel()

		schedulerCtx, schedulerCancel := context.WithTimeout(shutdownCtx, 20*time.Second)
		defer schedulerCancel()

		done := make(chan struct{})
		go func() {
			sched.Wait()
			close(done)
		}()

		select {
		case <-done:
			logger.Info("scheduler stopped")
		case <-schedulerCtx.Done():
			errorChan <- fmt.Errorf("scheduler stop timeout: in-flight round did not finish")
			logger.Error("scheduler stop timed out")
		}
	}()

	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		logger.Info("stopping worker pool...")
		if err := pool.Stop(); err != nil {
			errorChan <- fmt.Errorf("worker pool stop error: %w", err)
			logger.WithError(err).Error("failed to stop worker pool")
		} else {
			logger.Info("worker pool stopped")
		}
	}()

	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		logger.Info("stopping round metrics...")
		if err := roundMetrics.Shutdown(shutdownCtx); err != nil {
			errorChan <- fmt.Errorf("round metrics shutdown error: %w", err)
			logger.WithError(err).Error("failed to shut down round metrics")
		} else {
			logger.Info("round metrics shut down")
		}
	}()

	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		logger.Info("closing database connection...")
		if err := db.Close(); err != nil {
			errorChan <- fmt.Errorf("database close error: %w", err)
			logger.WithError(err).Error("failed to close database connection")
		} else {
			logger.Info("database connection closed")
		}
	}()

	shutdownWg.Add(1)
	go func() {
		defer shutdownWg.Done()
		logger.Info("closing redis connection...")
		if err := redisClient.Close(); err != nil {
			errorChan <- fmt.Errorf("redis close error: %w", err)
			logger.WithError(err).Error("failed to close redis connection")
		} else {
			logger.Info("redis connection closed")
		}
	}()

	done := make(chan struct{})
	go func() {
		shutdownWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all services stopped")
	case <-shutdownCtx.Done():
		logger.Error("shutdown timed out, forcing exit")
	}

	close(errorChan)
	errCount := 0
	for err := range errorChan {
		errCount++
		logger.WithError(err).Error("shutdown error")
	}
	if errCount > 0 {
		logger.WithField("error_count", errCount).Warn("dispatch engine shutdown completed with errors")
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpos/internal/config"
	"stockpos/internal/infra"
	"stockpos/internal/repository"
	"stockpos/internal/router"
	"stockpos/internal/worker"

	"github.com/bsm/redislock"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTelemetry, err := infra.InitTelemetry(ctx, cfg.OTLPEndpoint, cfg.ServiceName, version)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init telemetry")
	}

	db, err := infra.NewDatabase(infra.DatabaseOptions{
		Driver:      cfg.DBDriver,
		DSN:         cfg.DatabaseURL,
		AutoMigrate: cfg.DBAutoMigrate,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to connect to database")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Background jobs: the alert worker pool drains the low stock queue and
	// the cron rescans the catalog so alerts survive missed post-sale signals.
	mailer := infra.NewMailer(cfg)
	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	if !mailer.Enabled() {
		log.Warn().Msg("SMTP_HOST not set, low stock alerts will be dead-lettered")
	}
	workerHandlers := &worker.WorkerHandlers{
		Alerts: worker.NewAlertWorker(mailer, smtpCB, cfg.AlertEmailTo),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	worker.StartLowStockCron(ctx, worker.LowStockCronConfig{
		Products:  repository.NewProductRepository(db),
		Queue:     worker.NewDispatcher(rdb),
		Locker:    redislock.New(rdb),
		Threshold: cfg.LowStockThreshold,
		Interval:  cfg.LowStockScanInterval(),
	})

	r := router.New(cfg, db, rdb, smtpCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("version", version).Msgf("stockpos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("telemetry flush failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = rdb.Close()
	log.Info().Msg("server exited")
}

// setupLogger: dev gets pretty console output, production JSON. LOG_FILE
// adds a rotated JSON copy.
func setupLogger(cfg *config.Config) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if cfg.IsProduction() {
		out = os.Stderr
	}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Str("service", cfg.ServiceName).Logger()
}

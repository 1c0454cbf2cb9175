// Package main is the entry point for the recordhub background worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recordhub/internal/app"
	"recordhub/internal/config"
	"recordhub/internal/domain/auth"
	"recordhub/internal/infrastructure/storage/postgres"
	"recordhub/internal/infrastructure/storage/postgres/auth_repo"
	"recordhub/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("RECORDHUB_CONFIG"))
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg, "worker")
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Info("starting recordhub worker")

	db, err := app.OpenDatabase(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()
	if db.Pool == nil {
		log.Fatal("worker needs database.dsn")
	}

	authConfig := auth.DefaultServiceConfig()
	authConfig.RevokedRetention = cfg.Auth.RevokedRetention
	authService := auth.NewService(
		auth_repo.NewAccountRepo(db.TxM),
		auth_repo.NewTokenRepo(db.TxM),
		db.TxM,
		auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret)),
		authConfig,
	)
	idempotency := postgres.NewIdempotencyStore(db.TxM, 24*time.Hour)

	worker := NewWorker(log.WithComponent("worker"))
	jobs := []Job{
		{
			Name:     "token_cleanup",
			Schedule: cfg.Worker.TokenCleanupSchedule,
			Timeout:  time.Minute,
			Run: func(ctx context.Context) error {
				n, err := authService.CleanupExpiredTokens(ctx)
				if n > 0 {
					log.Infow("cleaned up refresh tokens", "count", n)
				}
				return err
			},
		},
		{
			Name:     "idempotency_cleanup",
			Schedule: cfg.Worker.TokenCleanupSchedule,
			Timeout:  time.Minute,
			Run: func(ctx context.Context) error {
				n, err := idempotency.CleanupExpired(ctx)
				if n > 0 {
					log.Infow("cleaned up idempotency keys", "count", n)
				}
				return err
			},
		},
		{
			Name:     "pool_stats",
			Schedule: cfg.Worker.PoolStatsSchedule,
			Run: func(ctx context.Context) error {
				postgres.LogPoolStats(ctx, db.Pool)
				return nil
			},
		},
	}
	for _, job := range jobs {
		if err := worker.Register(ctx, job); err != nil {
			log.Fatalw("invalid job schedule", "job", job.Name, "error", err)
		}
	}
	worker.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	worker.Stop()
	log.Info("worker stopped")
}

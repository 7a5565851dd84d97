package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pmonetwork/pmo-network/internal/bootstrap"
	"github.com/pmonetwork/pmo-network/internal/config"
	"github.com/pmonetwork/pmo-network/internal/pkg/distlock"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/storage"
	"github.com/pmonetwork/pmo-network/internal/worker"
)

func main() {
	log.Println("Starting PMO Network cleanup worker...")

	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.Redact())
	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := bootstrap.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		// The advisory lock still keeps runs exclusive.
		logger.Warn("redis unavailable, locking through postgres", "error", err)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Storage: %v", err)
	}

	repos := bootstrap.PostgresRepositories(db)
	tokens := account.NewService(repos.Accounts, nil)
	shares := document.NewService(repos.Documents, blobs, repos.Accounts, document.Options{})
	acts := activity.NewService(repos.Activity)

	interval := cfg.Worker.CleanupInterval()
	lock := distlock.NewLock(rdb, db, worker.LockKey(), interval)
	cleanup := worker.NewCleanupWorker(tokens, shares, acts, lock, worker.Options{
		Interval:          interval,
		BatchSize:         cfg.Worker.BatchSize,
		ActivityRetention: cfg.Worker.ActivityRetention(),
	})
	go cleanup.Start(ctx)
	log.Printf("Cleanup worker started (every %s, batch %d)", interval, cfg.Worker.BatchSize)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
	cancel()

	// Let an in-flight batch finish its current statement.
	time.Sleep(2 * time.Second)
	log.Println("Worker stopped")
}

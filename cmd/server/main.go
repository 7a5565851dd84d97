package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/pmonetwork/pmo-network/docs" // Swagger docs
	"github.com/pmonetwork/pmo-network/internal/api"
	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/bootstrap"
	"github.com/pmonetwork/pmo-network/internal/config"
	"github.com/pmonetwork/pmo-network/internal/jobfeed"
	"github.com/pmonetwork/pmo-network/internal/mailing"
	"github.com/pmonetwork/pmo-network/internal/media"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/pkg/ratelimit"
	"github.com/pmonetwork/pmo-network/internal/realtime"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
	"github.com/pmonetwork/pmo-network/internal/service/job"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
	"github.com/pmonetwork/pmo-network/internal/storage"
)

// @title PMO Network API
// @version 1.0
// @description Recruitment platform connecting PMO professionals with employers.

// @contact.name PMO Network
// @contact.email support@pmo.network

// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(cfg.Log.Redact())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := bootstrap.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Database: %v", err)
	}
	if db != nil {
		defer db.Close()
		logger.Info("connected to database")
	}

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("Redis: %v", err)
	}
	if rdb != nil {
		defer rdb.Close()
		logger.Info("connected to redis")
	}

	repos := bootstrap.Repos(db)

	broker, err := realtime.NewBroker(ctx, rdb, db, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Realtime broker: %v", err)
	}
	hub := realtime.NewHub(broker, realtime.DefaultHeartbeat)

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("Storage: %v", err)
	}
	logger.Info("document storage ready", "type", cfg.Storage.Type)

	sender, err := mailing.NewSender(ctx, cfg.Mail)
	if err != nil {
		log.Fatalf("Mail sender: %v", err)
	}
	templates, err := mailing.NewTemplates()
	if err != nil {
		log.Fatalf("Mail templates: %v", err)
	}
	notifier := mailing.NewNotifier(sender, templates, repos.Accounts, cfg.Server.BaseURL)

	acts := activity.NewService(repos.Activity)
	docs := document.NewService(repos.Documents, blobs, repos.Accounts, document.Options{
		Extractor:   media.NewTextExtractor(),
		Thumbnailer: media.NewThumbnailer(),
		Events:      broker,
		Activity:    acts,
	})
	svc := api.Services{
		Accounts:   account.NewService(repos.Accounts, notifier),
		Candidates: candidate.NewService(repos.Candidates, repos.Accounts, docs),
		Employers:  employer.NewService(repos.Employers, docs),
		Jobs:       job.NewService(repos.Jobs, jobfeed.NewFetcher(15*time.Second)),
		Applications: application.NewService(repos.Applications, repos.Jobs, docs, application.Hooks{
			Notifier: notifier,
			Events:   broker,
			Activity: acts,
		}),
		Documents: docs,
		Messaging: messaging.NewService(repos.Conversations, repos.Accounts, repos.Jobs, messaging.Hooks{
			Notifier: notifier,
			Events:   broker,
			Activity: acts,
		}),
		Activity: acts,
	}

	sessions := auth.NewSessionManager(auth.SessionConfig{
		Secret:     cfg.Auth.JWTSecret,
		TTL:        cfg.Auth.SessionTTL(),
		CookieName: cfg.Auth.CookieName,
		Secure:     cfg.Auth.CookieSecure,
	})

	var google *auth.GoogleProvider
	if cfg.Auth.GoogleEnabled() {
		google = auth.NewGoogleProvider(cfg.Auth.GoogleClientID, cfg.Auth.GoogleClientSecret,
			cfg.Auth.GoogleRedirectURL, cfg.Auth.CookieSecure)
		logger.Info("google sign-in enabled", "callback", cfg.Auth.GoogleRedirectURL)
	}

	handlers := api.NewHandlers(svc, sessions, api.Options{
		Google:       google,
		LoginLimiter: loginLimiter(rdb, cfg.Auth),
		Hub:          hub,
		AppURL:       cfg.Server.BaseURL,
	})
	pinger, _ := blobs.(storage.Pinger)
	health := api.NewHealthChecker(db, rdb, pinger, hub)
	server := api.NewServer(cfg.Server, handlers, health)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// loginLimiter shares login attempt counts across instances when Redis is
// available.
func loginLimiter(rdb *redis.Client, cfg config.AuthConfig) ratelimit.Limiter {
	if rdb != nil {
		return ratelimit.NewRedisLimiter(rdb, "pmo:login", cfg.LoginRateLimit, cfg.LoginRateWindow())
	}
	return ratelimit.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow())
}

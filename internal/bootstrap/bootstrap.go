// Package bootstrap opens the process-wide connections and selects the
// repository backend shared by the server, worker and admin binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/pmonetwork/pmo-network/internal/config"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/repository/postgres"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
	"github.com/pmonetwork/pmo-network/internal/service/job"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// Repositories is one backend's set of repositories.
type Repositories struct {
	Accounts      account.Repository
	Candidates    candidate.Repository
	Employers     employer.Repository
	Jobs          job.Repository
	Applications  application.Repository
	Documents     document.Repository
	Conversations messaging.Repository
	Activity      activity.Repository
}

// MemoryRepositories keeps everything in process. Data is lost on exit.
func MemoryRepositories() Repositories {
	s := memory.New()
	return Repositories{
		Accounts:      s.Accounts(),
		Candidates:    s.Candidates(),
		Employers:     s.Employers(),
		Jobs:          s.Jobs(),
		Applications:  s.Applications(),
		Documents:     s.Documents(),
		Conversations: s.Conversations(),
		Activity:      s.Activity(),
	}
}

// PostgresRepositories stores everything in db.
func PostgresRepositories(db *sql.DB) Repositories {
	return Repositories{
		Accounts:      postgres.NewAccountRepo(db),
		Candidates:    postgres.NewCandidateRepo(db),
		Employers:     postgres.NewEmployerRepo(db),
		Jobs:          postgres.NewJobRepo(db),
		Applications:  postgres.NewApplicationRepo(db),
		Documents:     postgres.NewDocumentRepo(db),
		Conversations: postgres.NewConversationRepo(db),
		Activity:      postgres.NewActivityRepo(db),
	}
}

// WithTimeouts appends connect and statement timeouts to a Postgres URL
// unless they are already set.
func WithTimeouts(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.Contains(dsn, "connect_timeout") {
		dsn += sep + "connect_timeout=5"
		sep = "&"
	}
	if !strings.Contains(dsn, "statement_timeout") {
		dsn += sep + "options=-c%20statement_timeout%3D15000%20-c%20idle_in_transaction_session_timeout%3D15000"
	}
	return dsn
}

// OpenDatabase connects to PostgreSQL. It returns nil without error when no
// URL is configured.
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", WithTimeouts(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// OpenRedis connects to Redis. It returns nil without error when no URL is
// configured.
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Repos picks Postgres when db is set and the in-memory store otherwise.
func Repos(db *sql.DB) Repositories {
	if db == nil {
		logger.Warn("DATABASE_URL not set, using in-memory repositories")
		return MemoryRepositories()
	}
	return PostgresRepositories(db)
}

// Package worker runs the platform's periodic maintenance jobs.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/pmonetwork/pmo-network/internal/pkg/distlock"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

// Retention policies:
//   - Verification tokens:          until expiry
//   - Password reset tokens:        until expiry, or 24h after use
//   - Document shares with expiry:  until expiry
//   - Activity logs:                ActivityRetention (default 180 days)
//
// Deletes run in batches so no single statement holds locks for long.

const (
	// DefaultCleanupInterval is how often the cleanup cycle runs.
	DefaultCleanupInterval = 1 * time.Hour

	// DefaultBatchSize limits each DELETE.
	DefaultBatchSize = 1000

	// DefaultActivityRetention is how long activity logs are kept.
	DefaultActivityRetention = 180 * 24 * time.Hour

	lockKey = "cleanup"
)

// TokenPurger removes expired verification and reset tokens.
type TokenPurger interface {
	PurgeTokens(ctx context.Context) (int64, error)
}

// SharePurger removes document shares past their expiry.
type SharePurger interface {
	PurgeExpiredShares(ctx context.Context, batch int) (int64, error)
}

// ActivityPurger removes activity entries older than a retention period.
type ActivityPurger interface {
	Purge(ctx context.Context, olderThan time.Duration, batch int) (int64, error)
}

// CleanupResult counts what one cycle removed.
type CleanupResult struct {
	Tokens   int64 `json:"tokens"`
	Shares   int64 `json:"shares"`
	Activity int64 `json:"activity"`
}

// Options tunes the cleanup worker. Zero values take the defaults.
type Options struct {
	Interval          time.Duration
	BatchSize         int
	ActivityRetention time.Duration
}

// CleanupWorker periodically removes expired and aged-out rows. A
// distributed lock keeps concurrent instances from running the same cycle.
type CleanupWorker struct {
	tokens    TokenPurger
	shares    SharePurger
	activity  ActivityPurger
	lock      distlock.DistLock
	interval  time.Duration
	batch     int
	retention time.Duration
}

// NewCleanupWorker creates a cleanup worker. lock may come from
// distlock.NewLock; with no shared backend it is process-local.
func NewCleanupWorker(tokens TokenPurger, shares SharePurger, activity ActivityPurger, lock distlock.DistLock, opts Options) *CleanupWorker {
	if opts.Interval <= 0 {
		opts.Interval = DefaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ActivityRetention <= 0 {
		opts.ActivityRetention = DefaultActivityRetention
	}
	return &CleanupWorker{
		tokens:    tokens,
		shares:    shares,
		activity:  activity,
		lock:      lock,
		interval:  opts.Interval,
		batch:     opts.BatchSize,
		retention: opts.ActivityRetention,
	}
}

// LockKey is the distributed lock name shared by every cleanup worker.
func LockKey() string { return lockKey }

// Start begins the cleanup loop. It blocks until ctx is cancelled.
func (w *CleanupWorker) Start(ctx context.Context) {
	logger.Info("cleanup worker starting", "interval", w.interval, "batch_size", w.batch)

	w.runLogged(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("cleanup worker stopping")
			return
		case <-ticker.C:
			w.runLogged(ctx)
		}
	}
}

func (w *CleanupWorker) runLogged(ctx context.Context) {
	start := time.Now()
	res, err := w.RunOnce(ctx)
	switch {
	case errors.Is(err, distlock.ErrNotAcquired):
		logger.Debug("cleanup skipped, another instance holds the lock")
	case err != nil:
		logger.Error("cleanup cycle failed", "error", err)
	default:
		logger.Info("cleanup cycle completed",
			"tokens", res.Tokens,
			"shares", res.Shares,
			"activity", res.Activity,
			"duration", time.Since(start).Round(time.Millisecond))
	}
}

// RunOnce runs a single cleanup cycle under the lock. It returns
// distlock.ErrNotAcquired when another instance is already running one.
// A failing step is logged and does not stop the steps after it; the
// first error is returned.
func (w *CleanupWorker) RunOnce(ctx context.Context) (CleanupResult, error) {
	var res CleanupResult
	err := distlock.Do(ctx, w.lock, func(ctx context.Context) error {
		var first error
		note := func(step string, err error) {
			if err == nil {
				return
			}
			logger.Warn("cleanup step failed", "step", step, "error", err)
			if first == nil {
				first = err
			}
		}

		n, err := w.tokens.PurgeTokens(ctx)
		res.Tokens = n
		note("tokens", err)
		w.extendLock(ctx)

		n, err = w.shares.PurgeExpiredShares(ctx, w.batch)
		res.Shares = n
		note("shares", err)
		w.extendLock(ctx)

		n, err = w.activity.Purge(ctx, w.retention, w.batch)
		res.Activity = n
		note("activity", err)

		return first
	})
	return res, err
}

// extendLock renews a TTL-based lock between steps so a slow cycle keeps
// exclusive ownership.
func (w *CleanupWorker) extendLock(ctx context.Context) {
	x, ok := w.lock.(interface {
		Extend(ctx context.Context, ttl time.Duration) error
	})
	if !ok {
		return
	}
	if err := x.Extend(ctx, w.interval); err != nil {
		logger.Warn("cleanup lock not extended", "error", err)
	}
}

package activity

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for activity logs.
type Repository interface {
	Create(ctx context.Context, l *domain.ActivityLog) error
	// List returns the user's entries, newest first.
	List(ctx context.Context, userID string, limit, offset int) ([]domain.ActivityLog, int, error)
	// Purge deletes entries created before cutoff, at most batch rows per
	// call, and returns the number removed.
	Purge(ctx context.Context, cutoff time.Time, batch int) (int64, error)
}

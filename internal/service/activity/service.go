package activity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

type ipKey struct{}

// WithIP stores the client address recorded with entries made during the
// request.
func WithIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// IPFromContext returns the address stored by WithIP.
func IPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}

// Service implements the activity log.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates an activity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Record appends an entry for userID. Errors are logged.
func (s *Service) Record(ctx context.Context, userID, action, entityType, entityID string, meta map[string]any) {
	if userID == "" || action == "" {
		return
	}
	l := &domain.ActivityLog{
		ID:         uuid.New().String(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   meta,
		IPAddress:  IPFromContext(ctx),
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, l); err != nil {
		logger.Warn("activity not recorded", "action", action, "user_id", userID, "error", err)
	}
}

// List returns a page of the user's activity, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]domain.ActivityLog, int, error) {
	return s.repo.List(ctx, userID, limit, offset)
}

// Purge removes entries older than the retention period in batches until
// none remain or ctx is done.
func (s *Service) Purge(ctx context.Context, olderThan time.Duration, batch int) (int64, error) {
	if batch <= 0 {
		batch = 1000
	}
	cutoff := s.now().Add(-olderThan)
	var total int64
	for {
		n, err := s.repo.Purge(ctx, cutoff, batch)
		total += n
		if err != nil {
			return total, err
		}
		if n < int64(batch) {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

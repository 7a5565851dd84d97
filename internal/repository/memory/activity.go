package memory

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
)

// ActivityRepo implements activity.Repository.
type ActivityRepo struct{ s *Store }

var _ activity.Repository = (*ActivityRepo)(nil)

func (r *ActivityRepo) Create(_ context.Context, l *domain.ActivityLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.activity = append(r.s.activity, *l)
	return nil
}

func (r *ActivityRepo) List(_ context.Context, userID string, limit, offset int) ([]domain.ActivityLog, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []domain.ActivityLog{}
	for _, l := range r.s.activity {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	newestFirst(out, func(l domain.ActivityLog) time.Time { return l.CreatedAt }, func(l domain.ActivityLog) string { return l.ID })
	return page(out, limit, offset), len(out), nil
}

func (r *ActivityRepo) Purge(_ context.Context, cutoff time.Time, batch int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	kept := r.s.activity[:0]
	for _, l := range r.s.activity {
		if l.CreatedAt.Before(cutoff) && (batch <= 0 || n < int64(batch)) {
			n++
			continue
		}
		kept = append(kept, l)
	}
	r.s.activity = kept
	return n, nil
}

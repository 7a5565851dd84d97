package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
)

// ActivityRepo implements activity.Repository against PostgreSQL.
type ActivityRepo struct{ db *sql.DB }

var _ activity.Repository = (*ActivityRepo)(nil)

// NewActivityRepo creates a Postgres-backed activity repository.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) Create(ctx context.Context, l *domain.ActivityLog) error {
	meta := []byte("{}")
	if len(l.Metadata) > 0 {
		b, err := json.Marshal(l.Metadata)
		if err != nil {
			return fmt.Errorf("encode activity metadata: %w", err)
		}
		meta = b
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, user_id, action, entity_type, entity_id, metadata, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, l.ID, l.UserID, l.Action, l.EntityType, l.EntityID, meta, l.IPAddress, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create activity log: %w", err)
	}
	return nil
}

func (r *ActivityRepo) List(ctx context.Context, userID string, limit, offset int) ([]domain.ActivityLog, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_logs WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activity: %w", err)
	}
	f := &filter{}
	f.and("user_id = " + f.arg(userID))
	q := `
		SELECT id, user_id, action, entity_type, entity_id, metadata, ip_address, created_at
		FROM activity_logs` + f.where() + ` ORDER BY created_at DESC, id DESC` + f.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()
	out := []domain.ActivityLog{}
	for rows.Next() {
		var l domain.ActivityLog
		var meta []byte
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.EntityType, &l.EntityID, &meta, &l.IPAddress, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan activity: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &l.Metadata); err != nil {
				return nil, 0, fmt.Errorf("decode activity metadata: %w", err)
			}
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *ActivityRepo) Purge(ctx context.Context, cutoff time.Time, batch int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM activity_logs WHERE id IN (
			SELECT id FROM activity_logs WHERE created_at < $1 ORDER BY created_at LIMIT $2)
	`, cutoff, batch)
	if err != nil {
		return 0, fmt.Errorf("purge activity: %w", err)
	}
	return res.RowsAffected()
}

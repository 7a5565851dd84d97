package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/application"
)

// ApplicationRepo implements application.Repository against PostgreSQL.
type ApplicationRepo struct{ db *sql.DB }

var _ application.Repository = (*ApplicationRepo)(nil)

// NewApplicationRepo creates a Postgres-backed application repository.
func NewApplicationRepo(db *sql.DB) *ApplicationRepo { return &ApplicationRepo{db: db} }

const applicationFrom = `
	FROM applications a
	JOIN jobs j ON j.id = a.job_id
	JOIN employer_profiles e ON e.id = j.employer_id
	JOIN candidate_profiles cp ON cp.id = a.candidate_id
	JOIN users u ON u.id = cp.user_id`

const applicationSelect = `
	SELECT a.id, a.job_id, a.candidate_id, a.cv_document_id, a.cover_letter, a.status,
	       a.created_at, a.updated_at, j.title, j.employer_id, e.company_name, e.user_id,
	       u.name, cp.user_id` + applicationFrom

func scanApplication(row rowScanner) (*domain.Application, error) {
	a := &domain.Application{}
	err := row.Scan(&a.ID, &a.JobID, &a.CandidateID, &a.CVDocumentID, &a.CoverLetter, &a.Status,
		&a.CreatedAt, &a.UpdatedAt, &a.JobTitle, &a.EmployerID, &a.CompanyName, &a.EmployerUserID,
		&a.CandidateName, &a.CandidateUserID)
	if isMissing(err) {
		return nil, application.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}
	return a, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, h *domain.ApplicationStatusHistory) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO application_status_history
			(id, application_id, from_status, to_status, changed_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, h.ID, h.ApplicationID, h.FromStatus, h.ToStatus, h.ChangedBy, h.Note, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert status history: %w", err)
	}
	return nil
}

func (r *ApplicationRepo) Create(ctx context.Context, a *domain.Application, h *domain.ApplicationStatusHistory) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO applications
				(id, job_id, candidate_id, cv_document_id, cover_letter, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, a.ID, a.JobID, a.CandidateID, a.CVDocumentID, a.CoverLetter, a.Status, a.CreatedAt, a.UpdatedAt)
		switch {
		case isUniqueViolation(err):
			return application.ErrAlreadyApplied
		case isDanglingRef(err):
			return application.ErrJobNotFound
		case err != nil:
			return fmt.Errorf("create application: %w", err)
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *ApplicationRepo) Get(ctx context.Context, id string) (*domain.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx, applicationSelect+` WHERE a.id = $1`, id))
}

func (r *ApplicationRepo) History(ctx context.Context, applicationID string) ([]domain.ApplicationStatusHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, from_status, to_status, changed_by, note, created_at
		FROM application_status_history
		WHERE application_id = $1
		ORDER BY created_at, id
	`, applicationID)
	if err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	defer rows.Close()
	out := []domain.ApplicationStatusHistory{}
	for rows.Next() {
		var h domain.ApplicationStatusHistory
		if err := rows.Scan(&h.ID, &h.ApplicationID, &h.FromStatus, &h.ToStatus, &h.ChangedBy, &h.Note, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ChangeStatus guards the update with the expected current status so two
// concurrent transitions cannot both apply.
func (r *ApplicationRepo) ChangeStatus(ctx context.Context, h *domain.ApplicationStatusHistory) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE applications SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4
		`, h.ToStatus, h.CreatedAt, h.ApplicationID, h.FromStatus)
		if err != nil {
			return fmt.Errorf("change status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, h.ApplicationID,
			).Scan(&exists); err != nil {
				return fmt.Errorf("change status: %w", err)
			}
			if !exists {
				return application.ErrNotFound
			}
			return application.ErrStaleStatus
		}
		return insertHistory(ctx, tx, h)
	})
}

func (r *ApplicationRepo) list(ctx context.Context, column, id string, lf application.ListFilter) ([]domain.Application, int, error) {
	f := &filter{}
	f.and(column + " = " + f.arg(id))
	if lf.Status != "" {
		f.and("a.status = " + f.arg(lf.Status))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications a`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count applications: %w", err)
	}
	q := applicationSelect + f.where() + ` ORDER BY a.created_at DESC, a.id DESC` + f.page(lf.Limit, lf.Offset)
	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()
	out := []domain.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	return out, total, rows.Err()
}

func (r *ApplicationRepo) ListForCandidate(ctx context.Context, candidateID string, f application.ListFilter) ([]domain.Application, int, error) {
	return r.list(ctx, "a.candidate_id", candidateID, f)
}

func (r *ApplicationRepo) FindByCandidateUser(ctx context.Context, userID, jobID string) (*domain.Application, error) {
	return scanApplication(r.db.QueryRowContext(ctx,
		applicationSelect+` WHERE cp.user_id = $1 AND a.job_id = $2`, userID, jobID))
}

func (r *ApplicationRepo) ListForJob(ctx context.Context, jobID string, f application.ListFilter) ([]domain.Application, int, error) {
	return r.list(ctx, "a.job_id", jobID, f)
}

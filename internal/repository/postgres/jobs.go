package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/job"
)

// JobRepo implements job.Repository against PostgreSQL.
type JobRepo struct{ db *sql.DB }

var _ job.Repository = (*JobRepo)(nil)

// NewJobRepo creates a Postgres-backed job repository.
func NewJobRepo(db *sql.DB) *JobRepo { return &JobRepo{db: db} }

const jobSelect = `
	SELECT j.id, j.employer_id, j.title, j.description, j.location, j.remote, j.employment_type,
	       j.salary_min, j.salary_max, j.currency, j.skills, j.status, j.external_ref, j.external_url,
	       j.published_at, j.closes_at, j.created_at, j.updated_at, e.company_name, e.user_id
	FROM jobs j JOIN employer_profiles e ON e.id = j.employer_id`

func scanJob(row rowScanner) (*domain.Job, error) {
	j := &domain.Job{}
	err := row.Scan(&j.ID, &j.EmployerID, &j.Title, &j.Description, &j.Location, &j.Remote, &j.EmploymentType,
		&j.SalaryMin, &j.SalaryMax, &j.Currency, pq.Array(&j.Skills), &j.Status, &j.ExternalRef, &j.ExternalURL,
		&j.PublishedAt, &j.ClosesAt, &j.CreatedAt, &j.UpdatedAt, &j.CompanyName, &j.EmployerUserID)
	if isMissing(err) {
		return nil, job.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return j, nil
}

func (r *JobRepo) queryJobs(ctx context.Context, q string, args ...interface{}) ([]domain.Job, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	out := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (r *JobRepo) Create(ctx context.Context, j *domain.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs
			(id, employer_id, title, description, location, remote, employment_type, salary_min,
			 salary_max, currency, skills, status, external_ref, external_url, published_at,
			 closes_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, j.ID, j.EmployerID, j.Title, j.Description, j.Location, j.Remote, j.EmploymentType, j.SalaryMin,
		j.SalaryMax, j.Currency, textArray(j.Skills), j.Status, j.ExternalRef, j.ExternalURL, j.PublishedAt,
		j.ClosesAt, j.CreatedAt, j.UpdatedAt)
	if isUniqueViolation(err) {
		return job.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (r *JobRepo) Get(ctx context.Context, id string) (*domain.Job, error) {
	return scanJob(r.db.QueryRowContext(ctx, jobSelect+` WHERE j.id = $1`, id))
}

func (r *JobRepo) Update(ctx context.Context, j *domain.Job) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET title = $1, description = $2, location = $3, remote = $4,
			employment_type = $5, salary_min = $6, salary_max = $7, currency = $8, skills = $9,
			closes_at = $10, updated_at = $11
		WHERE id = $12 AND employer_id = $13
	`, j.Title, j.Description, j.Location, j.Remote, j.EmploymentType, j.SalaryMin, j.SalaryMax,
		j.Currency, textArray(j.Skills), j.ClosesAt, j.UpdatedAt, j.ID, j.EmployerID)
	if isInvalidText(err) {
		return job.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return job.ErrNotFound
	}
	return nil
}

func (r *JobRepo) Delete(ctx context.Context, employerID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1 AND employer_id = $2`, id, employerID)
	if isInvalidText(err) {
		return job.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return job.ErrNotFound
	}
	return nil
}

func (r *JobRepo) SetStatus(ctx context.Context, employerID, id string, status domain.JobStatus, publishedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, published_at = $2, updated_at = NOW()
		WHERE id = $3 AND employer_id = $4
	`, status, publishedAt, id, employerID)
	if isInvalidText(err) {
		return job.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return job.ErrNotFound
	}
	return nil
}

func (r *JobRepo) ListByEmployer(ctx context.Context, employerID string, lf job.ListFilter) ([]domain.Job, int, error) {
	f := &filter{}
	f.and("j.employer_id = " + f.arg(employerID))
	if lf.Status != "" {
		f.and("j.status = " + f.arg(lf.Status))
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs j`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	q := jobSelect + f.where() + ` ORDER BY j.created_at DESC, j.id DESC` + f.page(lf.Limit, lf.Offset)
	out, err := r.queryJobs(ctx, q, f.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *JobRepo) Search(ctx context.Context, sf job.SearchFilter) ([]domain.Job, int, error) {
	f := &filter{}
	f.and("j.status = 'open'")
	f.and("(j.closes_at IS NULL OR j.closes_at > NOW())")
	if sf.Keyword != "" {
		kw := f.arg(contains(sf.Keyword))
		f.and("(j.title ILIKE " + kw + " OR j.description ILIKE " + kw + " OR e.company_name ILIKE " + kw + ")")
	}
	if sf.Location != "" {
		f.and("j.location ILIKE " + f.arg(contains(sf.Location)))
	}
	if sf.Remote != nil {
		f.and("j.remote = " + f.arg(*sf.Remote))
	}
	if sf.EmploymentType != "" {
		f.and("j.employment_type = " + f.arg(sf.EmploymentType))
	}
	if sf.Skill != "" {
		f.and("EXISTS (SELECT 1 FROM unnest(j.skills) AS sk WHERE lower(sk) = lower(" + f.arg(sf.Skill) + "))")
	}

	var total int
	countQ := `SELECT COUNT(*) FROM jobs j JOIN employer_profiles e ON e.id = j.employer_id` + f.where()
	if err := r.db.QueryRowContext(ctx, countQ, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count open jobs: %w", err)
	}
	q := jobSelect + f.where() + ` ORDER BY COALESCE(j.published_at, j.created_at) DESC, j.id DESC` + f.page(sf.Limit, sf.Offset)
	out, err := r.queryJobs(ctx, q, f.args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *JobRepo) ExternalRefs(ctx context.Context, employerID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT external_ref FROM jobs WHERE employer_id = $1 AND external_ref <> ''`, employerID)
	if err != nil {
		return nil, fmt.Errorf("external refs: %w", err)
	}
	defer rows.Close()
	refs := map[string]bool{}
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan external ref: %w", err)
		}
		refs[ref] = true
	}
	return refs, rows.Err()
}

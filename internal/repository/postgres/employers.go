package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
)

// EmployerRepo implements employer.Repository against PostgreSQL.
type EmployerRepo struct{ db *sql.DB }

var _ employer.Repository = (*EmployerRepo)(nil)

// NewEmployerRepo creates a Postgres-backed employer repository.
func NewEmployerRepo(db *sql.DB) *EmployerRepo { return &EmployerRepo{db: db} }

const employerColumns = `id, user_id, company_name, industry, company_size, website, location,
	description, contact_phone, logo_document_id, created_at, updated_at`

func scanEmployer(row rowScanner) (*domain.EmployerProfile, error) {
	p := &domain.EmployerProfile{}
	err := row.Scan(&p.ID, &p.UserID, &p.CompanyName, &p.Industry, &p.CompanySize, &p.Website,
		&p.Location, &p.Description, &p.ContactPhone, &p.LogoDocumentID, &p.CreatedAt, &p.UpdatedAt)
	if isMissing(err) {
		return nil, employer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan employer profile: %w", err)
	}
	return p, nil
}

func (r *EmployerRepo) GetProfile(ctx context.Context, id string) (*domain.EmployerProfile, error) {
	return scanEmployer(r.db.QueryRowContext(ctx, `SELECT `+employerColumns+` FROM employer_profiles WHERE id = $1`, id))
}

func (r *EmployerRepo) GetProfileByUser(ctx context.Context, userID string) (*domain.EmployerProfile, error) {
	return scanEmployer(r.db.QueryRowContext(ctx, `SELECT `+employerColumns+` FROM employer_profiles WHERE user_id = $1`, userID))
}

func (r *EmployerRepo) CreateProfile(ctx context.Context, p *domain.EmployerProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employer_profiles
			(id, user_id, company_name, industry, company_size, website, location, description,
			 contact_phone, logo_document_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.UserID, p.CompanyName, p.Industry, p.CompanySize, p.Website, p.Location, p.Description,
		p.ContactPhone, p.LogoDocumentID, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return employer.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create employer profile: %w", err)
	}
	return nil
}

func (r *EmployerRepo) UpdateProfile(ctx context.Context, p *domain.EmployerProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE employer_profiles SET
			company_name = $1, industry = $2, company_size = $3, website = $4, location = $5,
			description = $6, contact_phone = $7, logo_document_id = $8, updated_at = $9
		WHERE id = $10
	`, p.CompanyName, p.Industry, p.CompanySize, p.Website, p.Location,
		p.Description, p.ContactPhone, p.LogoDocumentID, p.UpdatedAt, p.ID)
	if isInvalidText(err) {
		return employer.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update employer profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return employer.ErrNotFound
	}
	return nil
}

func (r *EmployerRepo) SearchCandidates(ctx context.Context, employerID string, sf employer.SearchFilter) ([]domain.CandidateSearchResult, int, error) {
	f := &filter{}
	f.and("cp.visible")
	if sf.ShortlistedOnly {
		f.and(`EXISTS (SELECT 1 FROM employer_shortlists sl WHERE sl.employer_id = ` + f.arg(employerID) + ` AND sl.candidate_id = cp.id)`)
	}
	if sf.Location != "" {
		f.and("cp.location ILIKE " + f.arg(contains(sf.Location)))
	}
	if sf.MinYears > 0 {
		f.and("cp.years_experience >= " + f.arg(sf.MinYears))
	}
	if sf.Availability != "" {
		f.and("cp.availability = " + f.arg(sf.Availability))
	}
	if len(sf.Skills) > 0 {
		f.and(`NOT EXISTS (
			SELECT 1 FROM unnest(` + f.arg(pq.Array(sf.Skills)) + `::text[]) AS want(name)
			WHERE NOT EXISTS (
				SELECT 1 FROM candidate_skills s
				WHERE s.candidate_id = cp.id AND lower(s.name) = lower(want.name)))`)
	}
	if sf.Keyword != "" {
		kw := f.arg(contains(sf.Keyword))
		f.and(`(cp.headline ILIKE ` + kw + ` OR cp.summary ILIKE ` + kw + ` OR u.name ILIKE ` + kw + `
			OR EXISTS (SELECT 1 FROM candidate_skills s WHERE s.candidate_id = cp.id AND s.name ILIKE ` + kw + `)
			OR EXISTS (SELECT 1 FROM documents d WHERE d.owner_id = cp.user_id AND d.kind = 'cv'
			           AND d.extracted_text ILIKE ` + kw + `))`)
	}
	from := ` FROM candidate_profiles cp JOIN users u ON u.id = cp.user_id`
	where := f.where()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from+where, f.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count candidates: %w", err)
	}

	// The shortlist flag needs the employer even when it is not filtered on.
	emp := f.arg(employerID)
	q := `
		SELECT cp.id, cp.user_id, u.name, cp.headline, cp.location, cp.years_experience, cp.availability,
		       ARRAY(SELECT s.name FROM candidate_skills s WHERE s.candidate_id = cp.id ORDER BY s.name),
		       EXISTS (SELECT 1 FROM employer_shortlists sl WHERE sl.employer_id = ` + emp + ` AND sl.candidate_id = cp.id)` +
		from + where + ` ORDER BY cp.updated_at DESC, cp.id DESC` + f.page(sf.Limit, sf.Offset)

	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search candidates: %w", err)
	}
	defer rows.Close()
	out := []domain.CandidateSearchResult{}
	for rows.Next() {
		var c domain.CandidateSearchResult
		if err := rows.Scan(&c.CandidateID, &c.UserID, &c.Name, &c.Headline, &c.Location,
			&c.YearsExperience, &c.Availability, pq.Array(&c.Skills), &c.Shortlisted); err != nil {
			return nil, 0, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *EmployerRepo) CandidateVisible(ctx context.Context, candidateID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM candidate_profiles WHERE id = $1 AND visible)`, candidateID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("candidate visible: %w", err)
	}
	return ok, nil
}

func (r *EmployerRepo) JobOwnedBy(ctx context.Context, jobID, employerID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1 AND employer_id = $2)`, jobID, employerID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("job owner: %w", err)
	}
	return ok, nil
}

func (r *EmployerRepo) UpsertShortlist(ctx context.Context, e *domain.ShortlistEntry) error {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO employer_shortlists (id, employer_id, candidate_id, job_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employer_id, candidate_id)
		DO UPDATE SET note = EXCLUDED.note, job_id = EXCLUDED.job_id
		RETURNING id, created_at
	`, e.ID, e.EmployerID, e.CandidateID, e.JobID, e.Note, e.CreatedAt).Scan(&e.ID, &e.CreatedAt)
	if isDanglingRef(err) {
		return employer.ErrCandidateNotFound
	}
	if err != nil {
		return fmt.Errorf("upsert shortlist: %w", err)
	}
	return nil
}

func (r *EmployerRepo) DeleteShortlist(ctx context.Context, employerID, candidateID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM employer_shortlists WHERE employer_id = $1 AND candidate_id = $2`,
		employerID, candidateID)
	if isInvalidText(err) {
		return employer.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete shortlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return employer.ErrNotFound
	}
	return nil
}

func (r *EmployerRepo) ListShortlist(ctx context.Context, employerID string, limit, offset int) ([]domain.ShortlistEntry, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM employer_shortlists WHERE employer_id = $1`, employerID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shortlist: %w", err)
	}

	f := &filter{}
	f.and("sl.employer_id = " + f.arg(employerID))
	q := `
		SELECT sl.id, sl.employer_id, sl.candidate_id, sl.job_id, sl.note, sl.created_at,
		       u.name, cp.headline, cp.location
		FROM employer_shortlists sl
		JOIN candidate_profiles cp ON cp.id = sl.candidate_id
		JOIN users u ON u.id = cp.user_id` + f.where() + `
		ORDER BY sl.created_at DESC, sl.id DESC` + f.page(limit, offset)
	rows, err := r.db.QueryContext(ctx, q, f.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list shortlist: %w", err)
	}
	defer rows.Close()
	out := []domain.ShortlistEntry{}
	for rows.Next() {
		var e domain.ShortlistEntry
		if err := rows.Scan(&e.ID, &e.EmployerID, &e.CandidateID, &e.JobID, &e.Note, &e.CreatedAt,
			&e.CandidateName, &e.Headline, &e.Location); err != nil {
			return nil, 0, fmt.Errorf("scan shortlist: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

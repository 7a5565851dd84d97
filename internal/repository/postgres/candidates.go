package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
)

// CandidateRepo implements candidate.Repository against PostgreSQL.
type CandidateRepo struct{ db *sql.DB }

var _ candidate.Repository = (*CandidateRepo)(nil)

// NewCandidateRepo creates a Postgres-backed candidate repository.
func NewCandidateRepo(db *sql.DB) *CandidateRepo { return &CandidateRepo{db: db} }

const candidateColumns = `id, user_id, headline, summary, location, phone, years_experience,
	availability, desired_roles, linkedin_url, avatar_document_id, visible, created_at, updated_at`

func scanCandidate(row rowScanner) (*domain.CandidateProfile, error) {
	p := &domain.CandidateProfile{}
	err := row.Scan(&p.ID, &p.UserID, &p.Headline, &p.Summary, &p.Location, &p.Phone,
		&p.YearsExperience, &p.Availability, pq.Array(&p.DesiredRoles), &p.LinkedInURL,
		&p.AvatarDocumentID, &p.Visible, &p.CreatedAt, &p.UpdatedAt)
	if isMissing(err) {
		return nil, candidate.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan candidate profile: %w", err)
	}
	return p, nil
}

func (r *CandidateRepo) GetProfile(ctx context.Context, id string) (*domain.CandidateProfile, error) {
	return scanCandidate(r.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidate_profiles WHERE id = $1`, id))
}

func (r *CandidateRepo) GetProfileByUser(ctx context.Context, userID string) (*domain.CandidateProfile, error) {
	return scanCandidate(r.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidate_profiles WHERE user_id = $1`, userID))
}

func (r *CandidateRepo) CreateProfile(ctx context.Context, p *domain.CandidateProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_profiles
			(id, user_id, headline, summary, location, phone, years_experience, availability,
			 desired_roles, linkedin_url, avatar_document_id, visible, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, p.ID, p.UserID, p.Headline, p.Summary, p.Location, p.Phone, p.YearsExperience, p.Availability,
		textArray(p.DesiredRoles), p.LinkedInURL, p.AvatarDocumentID, p.Visible, p.CreatedAt, p.UpdatedAt)
	if isUniqueViolation(err) {
		return candidate.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("create candidate profile: %w", err)
	}
	return nil
}

func (r *CandidateRepo) UpdateProfile(ctx context.Context, p *domain.CandidateProfile) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidate_profiles SET
			headline = $1, summary = $2, location = $3, phone = $4, years_experience = $5,
			availability = $6, desired_roles = $7, linkedin_url = $8, avatar_document_id = $9,
			visible = $10, updated_at = $11
		WHERE id = $12
	`, p.Headline, p.Summary, p.Location, p.Phone, p.YearsExperience, p.Availability,
		textArray(p.DesiredRoles), p.LinkedInURL, p.AvatarDocumentID, p.Visible, p.UpdatedAt, p.ID)
	if isInvalidText(err) {
		return candidate.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update candidate profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return candidate.ErrNotFound
	}
	return nil
}

// deleteOwned removes a row of table scoped to the candidate.
func (r *CandidateRepo) deleteOwned(ctx context.Context, table, candidateID, id string) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND candidate_id = $2`, table), id, candidateID)
	if isInvalidText(err) {
		return candidate.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return candidate.ErrNotFound
	}
	return nil
}

// updateOwned runs an UPDATE ... RETURNING created_at scoped to the
// candidate and stores the original creation time in createdAt.
func (r *CandidateRepo) updateOwned(ctx context.Context, what string, createdAt interface{}, q string, args ...interface{}) error {
	err := r.db.QueryRowContext(ctx, q, args...).Scan(createdAt)
	if isMissing(err) {
		return candidate.ErrNotFound
	}
	if isUniqueViolation(err) {
		return candidate.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", what, err)
	}
	return nil
}

func (r *CandidateRepo) ListSkills(ctx context.Context, candidateID string) ([]domain.Skill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, candidate_id, name, level, years_experience, created_at
		FROM candidate_skills WHERE candidate_id = $1
		ORDER BY lower(name)
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	defer rows.Close()
	out := []domain.Skill{}
	for rows.Next() {
		var s domain.Skill
		if err := rows.Scan(&s.ID, &s.CandidateID, &s.Name, &s.Level, &s.YearsExperience, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CandidateRepo) AddSkill(ctx context.Context, s *domain.Skill) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_skills (id, candidate_id, name, level, years_experience, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.ID, s.CandidateID, s.Name, s.Level, s.YearsExperience, s.CreatedAt)
	if isUniqueViolation(err) {
		return candidate.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("add skill: %w", err)
	}
	return nil
}

func (r *CandidateRepo) UpdateSkill(ctx context.Context, s *domain.Skill) error {
	return r.updateOwned(ctx, "skill", &s.CreatedAt, `
		UPDATE candidate_skills SET name = $1, level = $2, years_experience = $3
		WHERE id = $4 AND candidate_id = $5
		RETURNING created_at
	`, s.Name, s.Level, s.YearsExperience, s.ID, s.CandidateID)
}

func (r *CandidateRepo) DeleteSkill(ctx context.Context, candidateID, id string) error {
	return r.deleteOwned(ctx, "candidate_skills", candidateID, id)
}

func (r *CandidateRepo) ListEducation(ctx context.Context, candidateID string) ([]domain.Education, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, candidate_id, institution, degree, field_of_study, start_date, end_date,
		       description, created_at
		FROM candidate_education WHERE candidate_id = $1
		ORDER BY start_date DESC NULLS LAST, created_at
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list education: %w", err)
	}
	defer rows.Close()
	out := []domain.Education{}
	for rows.Next() {
		var e domain.Education
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.Institution, &e.Degree, &e.FieldOfStudy,
			&e.StartDate, &e.EndDate, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan education: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CandidateRepo) AddEducation(ctx context.Context, e *domain.Education) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_education
			(id, candidate_id, institution, degree, field_of_study, start_date, end_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.CandidateID, e.Institution, e.Degree, e.FieldOfStudy, e.StartDate, e.EndDate, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("add education: %w", err)
	}
	return nil
}

func (r *CandidateRepo) UpdateEducation(ctx context.Context, e *domain.Education) error {
	return r.updateOwned(ctx, "education", &e.CreatedAt, `
		UPDATE candidate_education SET institution = $1, degree = $2, field_of_study = $3,
			start_date = $4, end_date = $5, description = $6
		WHERE id = $7 AND candidate_id = $8
		RETURNING created_at
	`, e.Institution, e.Degree, e.FieldOfStudy, e.StartDate, e.EndDate, e.Description, e.ID, e.CandidateID)
}

func (r *CandidateRepo) DeleteEducation(ctx context.Context, candidateID, id string) error {
	return r.deleteOwned(ctx, "candidate_education", candidateID, id)
}

func (r *CandidateRepo) ListExperience(ctx context.Context, candidateID string) ([]domain.Experience, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, candidate_id, company, title, location, start_date, end_date, current,
		       description, created_at
		FROM candidate_experience WHERE candidate_id = $1
		ORDER BY start_date DESC, created_at
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list experience: %w", err)
	}
	defer rows.Close()
	out := []domain.Experience{}
	for rows.Next() {
		var e domain.Experience
		if err := rows.Scan(&e.ID, &e.CandidateID, &e.Company, &e.Title, &e.Location,
			&e.StartDate, &e.EndDate, &e.Current, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CandidateRepo) AddExperience(ctx context.Context, e *domain.Experience) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_experience
			(id, candidate_id, company, title, location, start_date, end_date, current, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.CandidateID, e.Company, e.Title, e.Location, e.StartDate, e.EndDate, e.Current, e.Description, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("add experience: %w", err)
	}
	return nil
}

func (r *CandidateRepo) UpdateExperience(ctx context.Context, e *domain.Experience) error {
	return r.updateOwned(ctx, "experience", &e.CreatedAt, `
		UPDATE candidate_experience SET company = $1, title = $2, location = $3, start_date = $4,
			end_date = $5, current = $6, description = $7
		WHERE id = $8 AND candidate_id = $9
		RETURNING created_at
	`, e.Company, e.Title, e.Location, e.StartDate, e.EndDate, e.Current, e.Description, e.ID, e.CandidateID)
}

func (r *CandidateRepo) DeleteExperience(ctx context.Context, candidateID, id string) error {
	return r.deleteOwned(ctx, "candidate_experience", candidateID, id)
}

func (r *CandidateRepo) ListCertifications(ctx context.Context, candidateID string) ([]domain.Certification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, candidate_id, name, issuer, issued_at, expires_at, credential_id,
		       credential_url, created_at
		FROM candidate_certifications WHERE candidate_id = $1
		ORDER BY issued_at DESC NULLS LAST, created_at
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	defer rows.Close()
	out := []domain.Certification{}
	for rows.Next() {
		var c domain.Certification
		if err := rows.Scan(&c.ID, &c.CandidateID, &c.Name, &c.Issuer, &c.IssuedAt, &c.ExpiresAt,
			&c.CredentialID, &c.CredentialURL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan certification: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CandidateRepo) AddCertification(ctx context.Context, c *domain.Certification) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO candidate_certifications
			(id, candidate_id, name, issuer, issued_at, expires_at, credential_id, credential_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.CandidateID, c.Name, c.Issuer, c.IssuedAt, c.ExpiresAt, c.CredentialID, c.CredentialURL, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("add certification: %w", err)
	}
	return nil
}

func (r *CandidateRepo) UpdateCertification(ctx context.Context, c *domain.Certification) error {
	return r.updateOwned(ctx, "certification", &c.CreatedAt, `
		UPDATE candidate_certifications SET name = $1, issuer = $2, issued_at = $3, expires_at = $4,
			credential_id = $5, credential_url = $6
		WHERE id = $7 AND candidate_id = $8
		RETURNING created_at
	`, c.Name, c.Issuer, c.IssuedAt, c.ExpiresAt, c.CredentialID, c.CredentialURL, c.ID, c.CandidateID)
}

func (r *CandidateRepo) DeleteCertification(ctx context.Context, candidateID, id string) error {
	return r.deleteOwned(ctx, "candidate_certifications", candidateID, id)
}

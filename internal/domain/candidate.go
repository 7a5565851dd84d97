package domain

import (
	"strings"
	"time"
)

// Availability describes how soon a candidate can start.
type Availability string

const (
	AvailableImmediately Availability = "immediate"
	AvailableTwoWeeks    Availability = "two_weeks"
	AvailableOneMonth    Availability = "one_month"
	AvailableNotLooking  Availability = "not_looking"
)

// Valid reports whether a is a known availability value. Empty is allowed.
func (a Availability) Valid() bool {
	switch a {
	case "", AvailableImmediately, AvailableTwoWeeks, AvailableOneMonth, AvailableNotLooking:
		return true
	}
	return false
}

// CandidateProfile is the job-seeker side of a user account.
type CandidateProfile struct {
	ID               string       `json:"id" db:"id"`
	UserID           string       `json:"user_id" db:"user_id"`
	Headline         string       `json:"headline" db:"headline"`
	Summary          string       `json:"summary" db:"summary"`
	Location         string       `json:"location" db:"location"`
	Phone            string       `json:"phone" db:"phone"`
	YearsExperience  int          `json:"years_experience" db:"years_experience"`
	Availability     Availability `json:"availability" db:"availability"`
	DesiredRoles     []string     `json:"desired_roles" db:"desired_roles"`
	LinkedInURL      string       `json:"linkedin_url" db:"linkedin_url"`
	AvatarDocumentID *string      `json:"avatar_document_id,omitempty" db:"avatar_document_id"`
	Visible          bool         `json:"visible" db:"visible"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at" db:"updated_at"`
}

// Validate checks the editable profile fields.
func (p *CandidateProfile) Validate() error {
	if len(p.Headline) > 200 {
		return Invalid("headline", "must be at most 200 characters")
	}
	if p.YearsExperience < 0 || p.YearsExperience > 70 {
		return Invalid("years_experience", "must be between 0 and 70")
	}
	if !p.Availability.Valid() {
		return Invalid("availability", "unknown value %q", p.Availability)
	}
	return nil
}

// SkillLevel grades proficiency in a skill.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// Skill is a named competency on a candidate profile.
type Skill struct {
	ID              string     `json:"id" db:"id"`
	CandidateID     string     `json:"candidate_id" db:"candidate_id"`
	Name            string     `json:"name" db:"name"`
	Level           SkillLevel `json:"level" db:"level"`
	YearsExperience int        `json:"years_experience" db:"years_experience"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks name and level.
func (s *Skill) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Invalid("name", "is required")
	}
	if len(s.Name) > 100 {
		return Invalid("name", "must be at most 100 characters")
	}
	switch s.Level {
	case "":
		s.Level = SkillIntermediate
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert:
	default:
		return Invalid("level", "unknown value %q", s.Level)
	}
	if s.YearsExperience < 0 {
		return Invalid("years_experience", "must not be negative")
	}
	return nil
}

// Education is one entry of a candidate's education history.
type Education struct {
	ID           string     `json:"id" db:"id"`
	CandidateID  string     `json:"candidate_id" db:"candidate_id"`
	Institution  string     `json:"institution" db:"institution"`
	Degree       string     `json:"degree" db:"degree"`
	FieldOfStudy string     `json:"field_of_study" db:"field_of_study"`
	StartDate    *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty" db:"end_date"`
	Description  string     `json:"description" db:"description"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks required fields and date order.
func (e *Education) Validate() error {
	e.Institution = strings.TrimSpace(e.Institution)
	if e.Institution == "" {
		return Invalid("institution", "is required")
	}
	if e.StartDate != nil && e.EndDate != nil && e.EndDate.Before(*e.StartDate) {
		return Invalid("end_date", "must not be before start_date")
	}
	return nil
}

// Experience is one position in a candidate's work history.
type Experience struct {
	ID          string     `json:"id" db:"id"`
	CandidateID string     `json:"candidate_id" db:"candidate_id"`
	Company     string     `json:"company" db:"company"`
	Title       string     `json:"title" db:"title"`
	Location    string     `json:"location" db:"location"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty" db:"end_date"`
	Current     bool       `json:"current" db:"current"`
	Description string     `json:"description" db:"description"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks required fields and date order. A current position has no
// end date.
func (e *Experience) Validate() error {
	e.Company = strings.TrimSpace(e.Company)
	e.Title = strings.TrimSpace(e.Title)
	if e.Company == "" {
		return Invalid("company", "is required")
	}
	if e.Title == "" {
		return Invalid("title", "is required")
	}
	if e.StartDate.IsZero() {
		return Invalid("start_date", "is required")
	}
	if e.Current {
		e.EndDate = nil
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return Invalid("end_date", "must not be before start_date")
	}
	return nil
}

// Certification is a professional certificate (PMP, PRINCE2, ...).
type Certification struct {
	ID            string     `json:"id" db:"id"`
	CandidateID   string     `json:"candidate_id" db:"candidate_id"`
	Name          string     `json:"name" db:"name"`
	Issuer        string     `json:"issuer" db:"issuer"`
	IssuedAt      *time.Time `json:"issued_at,omitempty" db:"issued_at"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CredentialID  string     `json:"credential_id" db:"credential_id"`
	CredentialURL string     `json:"credential_url" db:"credential_url"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Validate checks required fields and date order.
func (c *Certification) Validate() error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return Invalid("name", "is required")
	}
	if c.IssuedAt != nil && c.ExpiresAt != nil && c.ExpiresAt.Before(*c.IssuedAt) {
		return Invalid("expires_at", "must not be before issued_at")
	}
	return nil
}

// CandidateDetail is the full profile view shown to employers.
type CandidateDetail struct {
	Profile        CandidateProfile `json:"profile"`
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	Skills         []Skill          `json:"skills"`
	Education      []Education      `json:"education"`
	Experience     []Experience     `json:"experience"`
	Certifications []Certification  `json:"certifications"`
	Completeness   int              `json:"completeness"`
}

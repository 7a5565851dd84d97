package domain

import (
	"net/url"
	"strings"
	"time"
)

// EmployerProfile is the hiring-company side of a user account.
type EmployerProfile struct {
	ID             string    `json:"id" db:"id"`
	UserID         string    `json:"user_id" db:"user_id"`
	CompanyName    string    `json:"company_name" db:"company_name"`
	Industry       string    `json:"industry" db:"industry"`
	CompanySize    string    `json:"company_size" db:"company_size"`
	Website        string    `json:"website" db:"website"`
	Location       string    `json:"location" db:"location"`
	Description    string    `json:"description" db:"description"`
	ContactPhone   string    `json:"contact_phone" db:"contact_phone"`
	LogoDocumentID *string   `json:"logo_document_id,omitempty" db:"logo_document_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Validate checks the editable profile fields.
func (p *EmployerProfile) Validate() error {
	p.CompanyName = strings.TrimSpace(p.CompanyName)
	if len(p.CompanyName) > 200 {
		return Invalid("company_name", "must be at most 200 characters")
	}
	if p.Website != "" {
		u, err := url.Parse(p.Website)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return Invalid("website", "must be an http(s) URL")
		}
	}
	return nil
}

// ShortlistEntry marks a candidate an employer wants to follow up on.
type ShortlistEntry struct {
	ID          string    `json:"id" db:"id"`
	EmployerID  string    `json:"employer_id" db:"employer_id"`
	CandidateID string    `json:"candidate_id" db:"candidate_id"`
	JobID       *string   `json:"job_id,omitempty" db:"job_id"`
	Note        string    `json:"note" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	CandidateName string `json:"candidate_name,omitempty" db:"-"`
	Headline      string `json:"headline,omitempty" db:"-"`
	Location      string `json:"location,omitempty" db:"-"`
}

// CandidateSearchResult is one row of the employer candidate search.
type CandidateSearchResult struct {
	CandidateID     string       `json:"candidate_id"`
	UserID          string       `json:"user_id"`
	Name            string       `json:"name"`
	Headline        string       `json:"headline"`
	Location        string       `json:"location"`
	YearsExperience int          `json:"years_experience"`
	Availability    Availability `json:"availability"`
	Skills          []string     `json:"skills"`
	Shortlisted     bool         `json:"shortlisted"`
}

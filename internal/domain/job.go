package domain

import (
	"strings"
	"time"
)

// JobStatus is the publication state of a job posting.
type JobStatus string

const (
	JobDraft  JobStatus = "draft"
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

// Valid reports whether s is a known job status.
func (s JobStatus) Valid() bool {
	return s == JobDraft || s == JobOpen || s == JobClosed
}

// CanMoveTo reports whether a job may go from s to next. Published jobs
// never return to draft.
func (s JobStatus) CanMoveTo(next JobStatus) bool {
	switch s {
	case JobDraft:
		return next == JobOpen || next == JobClosed
	case JobOpen:
		return next == JobClosed
	case JobClosed:
		return next == JobOpen
	}
	return false
}

// EmploymentType classifies the contract of a job.
type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentTemporary  EmploymentType = "temporary"
	EmploymentInternship EmploymentType = "internship"
)

// Valid reports whether t is a known employment type.
func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentTemporary, EmploymentInternship:
		return true
	}
	return false
}

// Job is a posting owned by an employer profile.
type Job struct {
	ID             string         `json:"id" db:"id"`
	EmployerID     string         `json:"employer_id" db:"employer_id"`
	Title          string         `json:"title" db:"title"`
	Description    string         `json:"description" db:"description"`
	Location       string         `json:"location" db:"location"`
	Remote         bool           `json:"remote" db:"remote"`
	EmploymentType EmploymentType `json:"employment_type" db:"employment_type"`
	SalaryMin      *int           `json:"salary_min,omitempty" db:"salary_min"`
	SalaryMax      *int           `json:"salary_max,omitempty" db:"salary_max"`
	Currency       string         `json:"currency" db:"currency"`
	Skills         []string       `json:"skills" db:"skills"`
	Status         JobStatus      `json:"status" db:"status"`
	ExternalRef    string         `json:"external_ref,omitempty" db:"external_ref"`
	ExternalURL    string         `json:"external_url,omitempty" db:"external_url"`
	PublishedAt    *time.Time     `json:"published_at,omitempty" db:"published_at"`
	ClosesAt       *time.Time     `json:"closes_at,omitempty" db:"closes_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`

	CompanyName    string `json:"company_name,omitempty" db:"-"`
	EmployerUserID string `json:"-" db:"-"`
}

// Validate checks required fields, enums and the salary range. Empty enum
// fields get their defaults.
func (j *Job) Validate() error {
	j.Title = strings.TrimSpace(j.Title)
	if j.Title == "" {
		return Invalid("title", "is required")
	}
	if len(j.Title) > 200 {
		return Invalid("title", "must be at most 200 characters")
	}
	if j.EmploymentType == "" {
		j.EmploymentType = EmploymentFullTime
	}
	if !j.EmploymentType.Valid() {
		return Invalid("employment_type", "unknown value %q", j.EmploymentType)
	}
	if j.Status == "" {
		j.Status = JobDraft
	}
	if !j.Status.Valid() {
		return Invalid("status", "unknown value %q", j.Status)
	}
	if j.SalaryMin != nil && *j.SalaryMin < 0 {
		return Invalid("salary_min", "must not be negative")
	}
	if j.SalaryMin != nil && j.SalaryMax != nil && *j.SalaryMax < *j.SalaryMin {
		return Invalid("salary_max", "must not be below salary_min")
	}
	if j.Currency == "" {
		j.Currency = "GBP"
	}
	j.Skills = normalizeSkills(j.Skills)
	return nil
}

// AcceptsApplications reports whether candidates may apply at now.
func (j *Job) AcceptsApplications(now time.Time) bool {
	if j.Status != JobOpen {
		return false
	}
	return j.ClosesAt == nil || now.Before(*j.ClosesAt)
}

func normalizeSkills(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			continue
		}
		seen[strings.ToLower(s)] = true
		out = append(out, s)
	}
	return out
}

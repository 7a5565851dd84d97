package domain

import "time"

// ApplicationStatus tracks a job application through the hiring pipeline.
type ApplicationStatus string

const (
	StatusApplied      ApplicationStatus = "applied"
	StatusReviewing    ApplicationStatus = "reviewing"
	StatusShortlisted  ApplicationStatus = "shortlisted"
	StatusInterviewing ApplicationStatus = "interviewing"
	StatusOffered      ApplicationStatus = "offered"
	StatusHired        ApplicationStatus = "hired"
	StatusRejected     ApplicationStatus = "rejected"
	StatusWithdrawn    ApplicationStatus = "withdrawn"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusApplied:      {StatusReviewing, StatusShortlisted, StatusRejected, StatusWithdrawn},
	StatusReviewing:    {StatusShortlisted, StatusInterviewing, StatusRejected, StatusWithdrawn},
	StatusShortlisted:  {StatusInterviewing, StatusOffered, StatusRejected, StatusWithdrawn},
	StatusInterviewing: {StatusOffered, StatusRejected, StatusWithdrawn},
	StatusOffered:      {StatusHired, StatusRejected, StatusWithdrawn},
}

// Valid reports whether s is a known application status.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusApplied, StatusReviewing, StatusShortlisted, StatusInterviewing,
		StatusOffered, StatusHired, StatusRejected, StatusWithdrawn:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusHired || s == StatusRejected || s == StatusWithdrawn
}

// CanTransition reports whether an application may move from one status to
// another.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range applicationTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Application links a candidate profile to a job.
type Application struct {
	ID           string            `json:"id" db:"id"`
	JobID        string            `json:"job_id" db:"job_id"`
	CandidateID  string            `json:"candidate_id" db:"candidate_id"`
	CVDocumentID *string           `json:"cv_document_id,omitempty" db:"cv_document_id"`
	CoverLetter  string            `json:"cover_letter" db:"cover_letter"`
	Status       ApplicationStatus `json:"status" db:"status"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`

	// Joined for display and authorization.
	JobTitle        string `json:"job_title,omitempty" db:"-"`
	CompanyName     string `json:"company_name,omitempty" db:"-"`
	EmployerID      string `json:"employer_id,omitempty" db:"-"`
	EmployerUserID  string `json:"-" db:"-"`
	CandidateName   string `json:"candidate_name,omitempty" db:"-"`
	CandidateUserID string `json:"-" db:"-"`

	StatusHistory []ApplicationStatusHistory `json:"status_history,omitempty" db:"-"`
}

// ApplicationStatusHistory is one append-only row of the status trail.
// FromStatus is empty for the initial row.
type ApplicationStatusHistory struct {
	ID            string            `json:"id" db:"id"`
	ApplicationID string            `json:"application_id" db:"application_id"`
	FromStatus    ApplicationStatus `json:"from_status" db:"from_status"`
	ToStatus      ApplicationStatus `json:"to_status" db:"to_status"`
	ChangedBy     string            `json:"changed_by" db:"changed_by"`
	Note          string            `json:"note" db:"note"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
}

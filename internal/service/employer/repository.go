package employer

import (
	"context"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for employer profiles,
// candidate search and shortlists.
type Repository interface {
	GetProfile(ctx context.Context, id string) (*domain.EmployerProfile, error)
	GetProfileByUser(ctx context.Context, userID string) (*domain.EmployerProfile, error)
	// CreateProfile returns ErrDuplicate if the user already has a profile.
	CreateProfile(ctx context.Context, p *domain.EmployerProfile) error
	UpdateProfile(ctx context.Context, p *domain.EmployerProfile) error

	// SearchCandidates returns visible candidate profiles matching f and
	// flags those on the employer's shortlist.
	SearchCandidates(ctx context.Context, employerID string, f SearchFilter) ([]domain.CandidateSearchResult, int, error)
	// CandidateVisible reports whether a visible candidate profile with id
	// exists.
	CandidateVisible(ctx context.Context, candidateID string) (bool, error)
	// JobOwnedBy reports whether jobID belongs to employerID.
	JobOwnedBy(ctx context.Context, jobID, employerID string) (bool, error)

	// UpsertShortlist inserts the entry or updates the note and job of an
	// existing one for the same candidate.
	UpsertShortlist(ctx context.Context, e *domain.ShortlistEntry) error
	DeleteShortlist(ctx context.Context, employerID, candidateID string) error
	ListShortlist(ctx context.Context, employerID string, limit, offset int) ([]domain.ShortlistEntry, int, error)
}

// SearchFilter controls the employer candidate search. Skills must all be
// present on a profile (case-insensitive).
type SearchFilter struct {
	Keyword         string
	Skills          []string
	Location        string
	MinYears        int
	Availability    domain.Availability
	ShortlistedOnly bool
	Limit           int
	Offset          int
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	CompanyName    *string `json:"company_name"`
	Industry       *string `json:"industry"`
	CompanySize    *string `json:"company_size"`
	Website        *string `json:"website"`
	Location       *string `json:"location"`
	Description    *string `json:"description"`
	ContactPhone   *string `json:"contact_phone"`
	LogoDocumentID *string `json:"logo_document_id"`
}

// DocumentLookup reads uploaded documents.
type DocumentLookup interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

package job

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/jobfeed"
)

// Repository defines the data access contract for jobs.
type Repository interface {
	// Create returns ErrDuplicate if the employer already has a job with
	// the same external reference.
	Create(ctx context.Context, j *domain.Job) error
	// Get returns the job with the owning employer's company name.
	Get(ctx context.Context, id string) (*domain.Job, error)
	// Update writes the editable fields of j, scoped to j.EmployerID.
	Update(ctx context.Context, j *domain.Job) error
	Delete(ctx context.Context, employerID, id string) error
	SetStatus(ctx context.Context, employerID, id string, status domain.JobStatus, publishedAt *time.Time) error
	ListByEmployer(ctx context.Context, employerID string, f ListFilter) ([]domain.Job, int, error)
	// Search returns open jobs matching f.
	Search(ctx context.Context, f SearchFilter) ([]domain.Job, int, error)
	ExternalRefs(ctx context.Context, employerID string) (map[string]bool, error)
}

// FeedFetcher downloads job feeds.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) ([]jobfeed.Item, error)
}

// ListFilter controls the employer's job list.
type ListFilter struct {
	Status domain.JobStatus
	Limit  int
	Offset int
}

// SearchFilter controls the public job search.
type SearchFilter struct {
	Keyword        string
	Location       string
	Remote         *bool
	EmploymentType domain.EmploymentType
	Skill          string
	Limit          int
	Offset         int
}

// Input is the create/update form of a job.
type Input struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Location       string                `json:"location"`
	Remote         bool                  `json:"remote"`
	EmploymentType domain.EmploymentType `json:"employment_type"`
	SalaryMin      *int                  `json:"salary_min"`
	SalaryMax      *int                  `json:"salary_max"`
	Currency       string                `json:"currency"`
	Skills         []string              `json:"skills"`
	ClosesAt       *time.Time            `json:"closes_at"`
}

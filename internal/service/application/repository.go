package application

import (
	"context"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for applications.
type Repository interface {
	// Create inserts the application and its first history row in one
	// transaction. Returns ErrAlreadyApplied for a duplicate (job, candidate).
	Create(ctx context.Context, a *domain.Application, h *domain.ApplicationStatusHistory) error
	// Get returns the application with job, employer and candidate fields
	// joined in.
	Get(ctx context.Context, id string) (*domain.Application, error)
	History(ctx context.Context, applicationID string) ([]domain.ApplicationStatusHistory, error)
	// ChangeStatus moves h.ApplicationID from h.FromStatus to h.ToStatus
	// and appends h, atomically. Returns ErrStaleStatus if the stored status
	// is no longer h.FromStatus.
	ChangeStatus(ctx context.Context, h *domain.ApplicationStatusHistory) error
	ListForCandidate(ctx context.Context, candidateID string, f ListFilter) ([]domain.Application, int, error)
	ListForJob(ctx context.Context, jobID string, f ListFilter) ([]domain.Application, int, error)
	// FindByCandidateUser returns the user's application to the job, or
	// ErrNotFound.
	FindByCandidateUser(ctx context.Context, userID, jobID string) (*domain.Application, error)
}

// JobLookup reads jobs, including drafts, with EmployerUserID populated.
type JobLookup interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
}

// DocumentLookup reads uploaded documents.
type DocumentLookup interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// Notifier emails the candidate about status changes.
type Notifier interface {
	ApplicationStatusChanged(ctx context.Context, a *domain.Application, note string) error
}

// EventPublisher pushes realtime toasts to a user.
type EventPublisher interface {
	Publish(ctx context.Context, userID string, e domain.Event) error
}

// ActivityRecorder writes the audit trail. It never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, userID, action, entityType, entityID string, meta map[string]any)
}

// ListFilter controls application lists.
type ListFilter struct {
	Status domain.ApplicationStatus
	Limit  int
	Offset int
}

// Hooks bundles the optional side-effect collaborators. Nil members are
// skipped.
type Hooks struct {
	Notifier Notifier
	Events   EventPublisher
	Activity ActivityRecorder
}

package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

const maxCoverLetter = 10000

// Service implements application business logic.
type Service struct {
	repo  Repository
	jobs  JobLookup
	docs  DocumentLookup
	hooks Hooks
	now   func() time.Time
}

// NewService creates an application service.
func NewService(repo Repository, jobs JobLookup, docs DocumentLookup, hooks Hooks) *Service {
	return &Service{repo: repo, jobs: jobs, docs: docs, hooks: hooks, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Apply submits the candidate's application to an open job.
func (s *Service) Apply(ctx context.Context, candidate domain.Actor, jobID string, cvDocumentID *string, coverLetter string) (*domain.Application, error) {
	j, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if j.Status == domain.JobDraft {
		return nil, ErrJobNotFound
	}
	now := s.now()
	if !j.AcceptsApplications(now) {
		return nil, ErrJobNotOpen
	}

	coverLetter = strings.TrimSpace(coverLetter)
	if len([]rune(coverLetter)) > maxCoverLetter {
		return nil, domain.Invalid("cover_letter", "must be at most %d characters", maxCoverLetter)
	}
	if cvDocumentID != nil && *cvDocumentID == "" {
		cvDocumentID = nil
	}
	if cvDocumentID != nil {
		doc, err := s.docs.GetDocument(ctx, *cvDocumentID)
		if err != nil || doc.OwnerID != candidate.UserID {
			return nil, domain.Invalid("cv_document_id", "unknown document")
		}
		if doc.Kind != domain.DocumentCV {
			return nil, domain.Invalid("cv_document_id", "document is not a CV")
		}
	}

	a := &domain.Application{
		ID:              uuid.New().String(),
		JobID:           j.ID,
		CandidateID:     candidate.ProfileID,
		CVDocumentID:    cvDocumentID,
		CoverLetter:     coverLetter,
		Status:          domain.StatusApplied,
		CreatedAt:       now,
		UpdatedAt:       now,
		JobTitle:        j.Title,
		CompanyName:     j.CompanyName,
		EmployerID:      j.EmployerID,
		EmployerUserID:  j.EmployerUserID,
		CandidateUserID: candidate.UserID,
	}
	h := &domain.ApplicationStatusHistory{
		ID:            uuid.New().String(),
		ApplicationID: a.ID,
		ToStatus:      domain.StatusApplied,
		ChangedBy:     candidate.UserID,
		CreatedAt:     now,
	}
	if err := s.repo.Create(ctx, a, h); err != nil {
		return nil, err
	}
	a.StatusHistory = []domain.ApplicationStatusHistory{*h}

	s.publish(ctx, a.EmployerUserID, domain.Event{
		Type:    domain.EventApplicationReceived,
		Title:   "New application",
		Message: fmt.Sprintf("New application for %s", a.JobTitle),
		Level:   "info",
		Data:    map[string]any{"application_id": a.ID, "job_id": a.JobID},
	})
	s.record(ctx, candidate.UserID, "application.created", a.ID, map[string]any{"job_id": a.JobID})
	return a, nil
}

// Withdraw lets a candidate pull out of the pipeline.
func (s *Service) Withdraw(ctx context.Context, candidate domain.Actor, id string) (*domain.Application, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CandidateID != candidate.ProfileID {
		return nil, ErrNotFound
	}
	if err := s.transition(ctx, a, domain.StatusWithdrawn, candidate.UserID, ""); err != nil {
		return nil, err
	}

	s.publish(ctx, a.EmployerUserID, domain.Event{
		Type:    domain.EventApplicationWithdraw,
		Title:   "Application withdrawn",
		Message: fmt.Sprintf("A candidate withdrew from %s", a.JobTitle),
		Level:   "warning",
		Data:    map[string]any{"application_id": a.ID, "job_id": a.JobID},
	})
	s.record(ctx, candidate.UserID, "application.withdrawn", a.ID, nil)
	return s.withHistory(ctx, a)
}

// ChangeStatus moves an application on behalf of the employer that owns
// the job.
func (s *Service) ChangeStatus(ctx context.Context, employer domain.Actor, id string, to domain.ApplicationStatus, note string) (*domain.Application, error) {
	if !to.Valid() {
		return nil, domain.Invalid("status", "unknown value %q", to)
	}
	note = strings.TrimSpace(note)
	if len(note) > 2000 {
		return nil, domain.Invalid("note", "must be at most 2000 characters")
	}
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.EmployerID != employer.ProfileID {
		return nil, ErrNotFound
	}
	if to == domain.StatusWithdrawn {
		return nil, fmt.Errorf("%w: only the candidate can withdraw", ErrInvalidTransition)
	}
	if err := s.transition(ctx, a, to, employer.UserID, note); err != nil {
		return nil, err
	}

	s.publish(ctx, a.CandidateUserID, domain.Event{
		Type:    domain.EventApplicationStatus,
		Title:   "Application update",
		Message: fmt.Sprintf("Your application for %s is now %s", a.JobTitle, to),
		Level:   levelFor(to),
		Data:    map[string]any{"application_id": a.ID, "status": string(to)},
	})
	if s.hooks.Notifier != nil {
		if err := s.hooks.Notifier.ApplicationStatusChanged(ctx, a, note); err != nil {
			logger.Warn("status email not sent", "application_id", a.ID, "error", err)
		}
	}
	s.record(ctx, employer.UserID, "application.status_changed", a.ID, map[string]any{"status": string(to)})
	return s.withHistory(ctx, a)
}

func (s *Service) transition(ctx context.Context, a *domain.Application, to domain.ApplicationStatus, by, note string) error {
	if !domain.CanTransition(a.Status, to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, to)
	}
	now := s.now()
	h := &domain.ApplicationStatusHistory{
		ID:            uuid.New().String(),
		ApplicationID: a.ID,
		FromStatus:    a.Status,
		ToStatus:      to,
		ChangedBy:     by,
		Note:          note,
		CreatedAt:     now,
	}
	if err := s.repo.ChangeStatus(ctx, h); err != nil {
		return err
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

// GetForCandidate returns one of the candidate's applications with its
// status history.
func (s *Service) GetForCandidate(ctx context.Context, candidate domain.Actor, id string) (*domain.Application, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CandidateID != candidate.ProfileID {
		return nil, ErrNotFound
	}
	return s.withHistory(ctx, a)
}

// GetForEmployer returns an application to one of the employer's jobs with
// its status history.
func (s *Service) GetForEmployer(ctx context.Context, employer domain.Actor, id string) (*domain.Application, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.EmployerID != employer.ProfileID {
		return nil, ErrNotFound
	}
	return s.withHistory(ctx, a)
}

// ListForCandidate returns the candidate's applications, newest first.
func (s *Service) ListForCandidate(ctx context.Context, candidate domain.Actor, f ListFilter) ([]domain.Application, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.Invalid("status", "unknown value %q", f.Status)
	}
	return s.repo.ListForCandidate(ctx, candidate.ProfileID, f)
}

// ForJob returns the user's own application to a job, or ErrNotFound.
func (s *Service) ForJob(ctx context.Context, userID, jobID string) (*domain.Application, error) {
	return s.repo.FindByCandidateUser(ctx, userID, jobID)
}

// ListForJob returns the applications to one of the employer's jobs.
func (s *Service) ListForJob(ctx context.Context, employer domain.Actor, jobID string, f ListFilter) ([]domain.Application, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.Invalid("status", "unknown value %q", f.Status)
	}
	j, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, 0, err
	}
	if j.EmployerID != employer.ProfileID {
		return nil, 0, ErrJobNotFound
	}
	return s.repo.ListForJob(ctx, jobID, f)
}

func (s *Service) withHistory(ctx context.Context, a *domain.Application) (*domain.Application, error) {
	h, err := s.repo.History(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.StatusHistory = h
	return a, nil
}

func (s *Service) publish(ctx context.Context, userID string, e domain.Event) {
	if s.hooks.Events == nil || userID == "" {
		return
	}
	e.ID = uuid.New().String()
	e.CreatedAt = s.now()
	if err := s.hooks.Events.Publish(ctx, userID, e); err != nil {
		logger.Warn("event not published", "type", e.Type, "error", err)
	}
}

func (s *Service) record(ctx context.Context, userID, action, id string, meta map[string]any) {
	if s.hooks.Activity != nil {
		s.hooks.Activity.Record(ctx, userID, action, "application", id, meta)
	}
}

func levelFor(status domain.ApplicationStatus) string {
	switch status {
	case domain.StatusRejected:
		return "warning"
	case domain.StatusOffered, domain.StatusHired:
		return "success"
	}
	return "info"
}

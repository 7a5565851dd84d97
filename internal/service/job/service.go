package job

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

// Service implements job business logic.
type Service struct {
	repo Repository
	feed FeedFetcher
	now  func() time.Time
}

// NewService creates a job service. feed may be nil, which disables
// imports.
func NewService(repo Repository, feed FeedFetcher) *Service {
	return &Service{repo: repo, feed: feed, now: time.Now}
}

func (in Input) apply(j *domain.Job) {
	j.Title = in.Title
	j.Description = strings.TrimSpace(in.Description)
	j.Location = strings.TrimSpace(in.Location)
	j.Remote = in.Remote
	j.EmploymentType = in.EmploymentType
	j.SalaryMin = in.SalaryMin
	j.SalaryMax = in.SalaryMax
	j.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	j.Skills = in.Skills
	j.ClosesAt = in.ClosesAt
}

// Create adds a draft job for the employer.
func (s *Service) Create(ctx context.Context, employerID string, in Input) (*domain.Job, error) {
	now := s.now()
	j := &domain.Job{
		ID:         uuid.New().String(),
		EmployerID: employerID,
		Status:     domain.JobDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.apply(j)
	if err := j.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Get returns one of the employer's jobs. Jobs of other employers are
// reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, employerID, id string) (*domain.Job, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.EmployerID != employerID {
		return nil, ErrNotFound
	}
	return j, nil
}

// Update replaces the editable fields of one of the employer's jobs.
func (s *Service) Update(ctx context.Context, employerID, id string, in Input) (*domain.Job, error) {
	j, err := s.Get(ctx, employerID, id)
	if err != nil {
		return nil, err
	}
	in.apply(j)
	if err := j.Validate(); err != nil {
		return nil, err
	}
	j.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// Delete removes one of the employer's jobs and its applications.
func (s *Service) Delete(ctx context.Context, employerID, id string) error {
	return s.repo.Delete(ctx, employerID, id)
}

// SetStatus moves a job through draft → open → closed. The first move to
// open records the publication time.
func (s *Service) SetStatus(ctx context.Context, employerID, id string, status domain.JobStatus) (*domain.Job, error) {
	if !status.Valid() {
		return nil, domain.Invalid("status", "unknown value %q", status)
	}
	j, err := s.Get(ctx, employerID, id)
	if err != nil {
		return nil, err
	}
	if j.Status == status {
		return j, nil
	}
	if !j.Status.CanMoveTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, j.Status, status)
	}
	if status == domain.JobOpen && j.PublishedAt == nil {
		now := s.now()
		j.PublishedAt = &now
	}
	if err := s.repo.SetStatus(ctx, employerID, id, status, j.PublishedAt); err != nil {
		return nil, err
	}
	j.Status = status
	return j, nil
}

// List returns the employer's jobs, newest first.
func (s *Service) List(ctx context.Context, employerID string, f ListFilter) ([]domain.Job, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, domain.Invalid("status", "unknown value %q", f.Status)
	}
	return s.repo.ListByEmployer(ctx, employerID, f)
}

// Search runs the public job board search over open jobs.
func (s *Service) Search(ctx context.Context, f SearchFilter) ([]domain.Job, int, error) {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Location = strings.TrimSpace(f.Location)
	f.Skill = strings.TrimSpace(f.Skill)
	if f.EmploymentType != "" && !f.EmploymentType.Valid() {
		return nil, 0, domain.Invalid("employment_type", "unknown value %q", f.EmploymentType)
	}
	return s.repo.Search(ctx, f)
}

// GetPublic returns a job for the public board. Drafts are not public.
func (s *Service) GetPublic(ctx context.Context, id string) (*domain.Job, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if j.Status == domain.JobDraft {
		return nil, ErrNotFound
	}
	return j, nil
}

// ImportResult summarises a feed import.
type ImportResult struct {
	Found    int          `json:"found"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Jobs     []domain.Job `json:"jobs"`
}

// ImportFeed creates draft jobs from the items of an RSS/Atom feed. Items
// are keyed by GUID; those already imported are skipped.
func (s *Service) ImportFeed(ctx context.Context, employerID, url string) (*ImportResult, error) {
	if s.feed == nil {
		return nil, ErrImportDisabled
	}
	items, err := s.feed.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	known, err := s.repo.ExternalRefs(ctx, employerID)
	if err != nil {
		return nil, err
	}
	if known == nil {
		known = map[string]bool{}
	}

	res := &ImportResult{Found: len(items), Jobs: []domain.Job{}}
	for _, it := range items {
		if known[it.GUID] {
			res.Skipped++
			continue
		}
		now := s.now()
		j := &domain.Job{
			ID:          uuid.New().String(),
			EmployerID:  employerID,
			Title:       truncate(it.Title, 200),
			Description: it.Description,
			Location:    it.Location,
			Skills:      it.Categories,
			Status:      domain.JobDraft,
			ExternalRef: it.GUID,
			ExternalURL: it.Link,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := j.Validate(); err != nil {
			logger.Warn("skipping feed item", "guid", it.GUID, "error", err)
			res.Skipped++
			continue
		}
		err := s.repo.Create(ctx, j)
		if errors.Is(err, ErrDuplicate) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}
		known[it.GUID] = true
		res.Imported++
		res.Jobs = append(res.Jobs, *j)
	}
	return res, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package employer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/document"
)

const maxSearchLimit = 100

// Service implements employer business logic.
type Service struct {
	repo Repository
	docs DocumentLookup
	now  func() time.Time
}

// NewService creates an employer service backed by the given repository.
func NewService(repo Repository, docs DocumentLookup) *Service {
	return &Service{repo: repo, docs: docs, now: time.Now}
}

// GetProfile returns the caller's profile, creating an empty one on first
// access.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.EmployerProfile, error) {
	p, err := s.repo.GetProfileByUser(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := s.now()
	p = &domain.EmployerProfile{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repo.CreateProfile(ctx, p)
	if errors.Is(err, ErrDuplicate) {
		return s.repo.GetProfileByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile applies u to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, u ProfileUpdate) (*domain.EmployerProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.CompanyName, u.CompanyName)
	set(&p.Industry, u.Industry)
	set(&p.CompanySize, u.CompanySize)
	set(&p.Website, u.Website)
	set(&p.Location, u.Location)
	set(&p.Description, u.Description)
	set(&p.ContactPhone, u.ContactPhone)
	if u.LogoDocumentID != nil {
		if *u.LogoDocumentID == "" {
			p.LogoDocumentID = nil
		} else {
			id := *u.LogoDocumentID
			doc, err := s.docs.GetDocument(ctx, id)
			if errors.Is(err, document.ErrNotFound) || (err == nil && doc.OwnerID != userID) {
				return nil, domain.Invalid("logo_document_id", "unknown document")
			}
			if err != nil {
				return nil, err
			}
			if doc.Kind != domain.DocumentLogo {
				return nil, domain.Invalid("logo_document_id", "document is not a logo image")
			}
			p.LogoDocumentID = &id
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Search finds visible candidates for an employer.
func (s *Service) Search(ctx context.Context, employerID string, f SearchFilter) ([]domain.CandidateSearchResult, int, error) {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Location = strings.TrimSpace(f.Location)
	skills := f.Skills[:0:0]
	for _, sk := range f.Skills {
		if sk = strings.TrimSpace(sk); sk != "" {
			skills = append(skills, sk)
		}
	}
	f.Skills = skills
	if f.MinYears < 0 {
		return nil, 0, domain.Invalid("min_years", "must not be negative")
	}
	if !f.Availability.Valid() {
		return nil, 0, domain.Invalid("availability", "unknown value %q", f.Availability)
	}
	if f.Limit <= 0 || f.Limit > maxSearchLimit {
		f.Limit = 20
	}
	return s.repo.SearchCandidates(ctx, employerID, f)
}

// Shortlist adds a candidate to the employer's shortlist or updates the
// note of an existing entry.
func (s *Service) Shortlist(ctx context.Context, employerID, candidateID string, jobID *string, note string) (*domain.ShortlistEntry, error) {
	ok, err := s.repo.CandidateVisible(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCandidateNotFound
	}
	if jobID != nil && *jobID == "" {
		jobID = nil
	}
	if jobID != nil {
		owned, err := s.repo.JobOwnedBy(ctx, *jobID, employerID)
		if err != nil {
			return nil, err
		}
		if !owned {
			return nil, ErrNotFound
		}
	}
	note = strings.TrimSpace(note)
	if len(note) > 2000 {
		return nil, domain.Invalid("note", "must be at most 2000 characters")
	}
	e := &domain.ShortlistEntry{
		ID:          uuid.New().String(),
		EmployerID:  employerID,
		CandidateID: candidateID,
		JobID:       jobID,
		Note:        note,
		CreatedAt:   s.now(),
	}
	if err := s.repo.UpsertShortlist(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// RemoveFromShortlist deletes a shortlist entry.
func (s *Service) RemoveFromShortlist(ctx context.Context, employerID, candidateID string) error {
	return s.repo.DeleteShortlist(ctx, employerID, candidateID)
}

// ListShortlist returns the employer's shortlist, newest first.
func (s *Service) ListShortlist(ctx context.Context, employerID string, limit, offset int) ([]domain.ShortlistEntry, int, error) {
	return s.repo.ListShortlist(ctx, employerID, limit, offset)
}

package candidate

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/document"
)

// Service implements candidate profile logic.
type Service struct {
	repo  Repository
	users UserDirectory
	docs  DocumentLookup
	now   func() time.Time
}

// NewService creates a candidate service.
func NewService(repo Repository, users UserDirectory, docs DocumentLookup) *Service {
	return &Service{repo: repo, users: users, docs: docs, now: time.Now}
}

// GetProfile returns the caller's profile, creating an empty visible one on
// first access.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.CandidateProfile, error) {
	p, err := s.repo.GetProfileByUser(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.now()
	p = &domain.CandidateProfile{
		ID:           uuid.New().String(),
		UserID:       userID,
		DesiredRoles: []string{},
		Visible:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.repo.CreateProfile(ctx, p)
	if errors.Is(err, ErrDuplicate) {
		// Created by a concurrent request.
		return s.repo.GetProfileByUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProfile applies u to the caller's profile.
func (s *Service) UpdateProfile(ctx context.Context, userID string, u ProfileUpdate) (*domain.CandidateProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Headline != nil {
		p.Headline = strings.TrimSpace(*u.Headline)
	}
	if u.Summary != nil {
		p.Summary = strings.TrimSpace(*u.Summary)
	}
	if u.Location != nil {
		p.Location = strings.TrimSpace(*u.Location)
	}
	if u.Phone != nil {
		p.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.YearsExperience != nil {
		p.YearsExperience = *u.YearsExperience
	}
	if u.Availability != nil {
		p.Availability = *u.Availability
	}
	if u.DesiredRoles != nil {
		p.DesiredRoles = *u.DesiredRoles
	}
	if u.LinkedInURL != nil {
		p.LinkedInURL = strings.TrimSpace(*u.LinkedInURL)
	}
	if u.AvatarDocumentID != nil {
		if *u.AvatarDocumentID == "" {
			p.AvatarDocumentID = nil
		} else {
			id := *u.AvatarDocumentID
			if err := s.checkAvatar(ctx, userID, id); err != nil {
				return nil, err
			}
			p.AvatarDocumentID = &id
		}
	}
	if u.Visible != nil {
		p.Visible = *u.Visible
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

// checkAvatar requires id to be an avatar image uploaded by the user.
func (s *Service) checkAvatar(ctx context.Context, userID, id string) error {
	doc, err := s.docs.GetDocument(ctx, id)
	if errors.Is(err, document.ErrNotFound) || (err == nil && doc.OwnerID != userID) {
		return domain.Invalid("avatar_document_id", "unknown document")
	}
	if err != nil {
		return err
	}
	if doc.Kind != domain.DocumentAvatar {
		return domain.Invalid("avatar_document_id", "document is not an avatar image")
	}
	return nil
}

// Counts are the sizes of a profile's collections.
type Counts struct {
	Skills         int
	Education      int
	Experience     int
	Certifications int
}

// Completeness scores a profile from 0 to 100.
func Completeness(p *domain.CandidateProfile, c Counts) int {
	score := 0
	add := func(ok bool, points int) {
		if ok {
			score += points
		}
	}
	add(p.Headline != "", 15)
	add(p.Summary != "", 15)
	add(p.Location != "", 10)
	add(p.Phone != "", 5)
	add(p.AvatarDocumentID != nil, 5)
	add(c.Skills >= 3, 20)
	add(c.Experience > 0, 15)
	add(c.Education > 0, 10)
	add(c.Certifications > 0, 5)
	return score
}

// Detail returns the full profile view of a candidate for employers.
// Hidden profiles are reported as ErrNotFound.
func (s *Service) Detail(ctx context.Context, candidateID string) (*domain.CandidateDetail, error) {
	p, err := s.repo.GetProfile(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if !p.Visible {
		return nil, ErrNotFound
	}
	return s.detail(ctx, p)
}

// OwnDetail returns the caller's full profile with its completeness score.
func (s *Service) OwnDetail(ctx context.Context, userID string) (*domain.CandidateDetail, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, p)
}

func (s *Service) detail(ctx context.Context, p *domain.CandidateProfile) (*domain.CandidateDetail, error) {
	u, err := s.users.GetUser(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	d := &domain.CandidateDetail{Profile: *p, Name: u.Name, Email: u.Email}
	if d.Skills, err = s.repo.ListSkills(ctx, p.ID); err != nil {
		return nil, err
	}
	if d.Education, err = s.repo.ListEducation(ctx, p.ID); err != nil {
		return nil, err
	}
	if d.Experience, err = s.repo.ListExperience(ctx, p.ID); err != nil {
		return nil, err
	}
	if d.Certifications, err = s.repo.ListCertifications(ctx, p.ID); err != nil {
		return nil, err
	}
	d.Completeness = Completeness(p, Counts{
		Skills:         len(d.Skills),
		Education:      len(d.Education),
		Experience:     len(d.Experience),
		Certifications: len(d.Certifications),
	})
	return d, nil
}

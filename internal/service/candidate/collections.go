package candidate

import (
	"context"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

func (s *Service) profileID(ctx context.Context, userID string) (string, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// ListSkills returns the caller's skills.
func (s *Service) ListSkills(ctx context.Context, userID string) ([]domain.Skill, error) {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListSkills(ctx, pid)
}

// AddSkill adds a skill to the caller's profile.
func (s *Service) AddSkill(ctx context.Context, userID string, sk domain.Skill) (*domain.Skill, error) {
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sk.ID = uuid.New().String()
	sk.CandidateID = pid
	sk.CreatedAt = s.now()
	if err := s.repo.AddSkill(ctx, &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

// UpdateSkill replaces one of the caller's skills.
func (s *Service) UpdateSkill(ctx context.Context, userID, id string, sk domain.Skill) (*domain.Skill, error) {
	if err := sk.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	sk.ID = id
	sk.CandidateID = pid
	if err := s.repo.UpdateSkill(ctx, &sk); err != nil {
		return nil, err
	}
	return &sk, nil
}

// DeleteSkill removes one of the caller's skills.
func (s *Service) DeleteSkill(ctx context.Context, userID, id string) error {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteSkill(ctx, pid, id)
}

// ListEducation returns the caller's education history.
func (s *Service) ListEducation(ctx context.Context, userID string) ([]domain.Education, error) {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEducation(ctx, pid)
}

// AddEducation adds an education entry.
func (s *Service) AddEducation(ctx context.Context, userID string, e domain.Education) (*domain.Education, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.ID = uuid.New().String()
	e.CandidateID = pid
	e.CreatedAt = s.now()
	if err := s.repo.AddEducation(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateEducation replaces an education entry.
func (s *Service) UpdateEducation(ctx context.Context, userID, id string, e domain.Education) (*domain.Education, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.CandidateID = pid
	if err := s.repo.UpdateEducation(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteEducation removes an education entry.
func (s *Service) DeleteEducation(ctx context.Context, userID, id string) error {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteEducation(ctx, pid, id)
}

// ListExperience returns the caller's work history.
func (s *Service) ListExperience(ctx context.Context, userID string) ([]domain.Experience, error) {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExperience(ctx, pid)
}

// AddExperience adds a position.
func (s *Service) AddExperience(ctx context.Context, userID string, e domain.Experience) (*domain.Experience, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.ID = uuid.New().String()
	e.CandidateID = pid
	e.CreatedAt = s.now()
	if err := s.repo.AddExperience(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpdateExperience replaces a position.
func (s *Service) UpdateExperience(ctx context.Context, userID, id string, e domain.Experience) (*domain.Experience, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	e.ID = id
	e.CandidateID = pid
	if err := s.repo.UpdateExperience(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DeleteExperience removes a position.
func (s *Service) DeleteExperience(ctx context.Context, userID, id string) error {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteExperience(ctx, pid, id)
}

// ListCertifications returns the caller's certifications.
func (s *Service) ListCertifications(ctx context.Context, userID string) ([]domain.Certification, error) {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCertifications(ctx, pid)
}

// AddCertification adds a certification.
func (s *Service) AddCertification(ctx context.Context, userID string, c domain.Certification) (*domain.Certification, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.ID = uuid.New().String()
	c.CandidateID = pid
	c.CreatedAt = s.now()
	if err := s.repo.AddCertification(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateCertification replaces a certification.
func (s *Service) UpdateCertification(ctx context.Context, userID, id string, c domain.Certification) (*domain.Certification, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.ID = id
	c.CandidateID = pid
	if err := s.repo.UpdateCertification(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteCertification removes a certification.
func (s *Service) DeleteCertification(ctx context.Context, userID, id string) error {
	pid, err := s.profileID(ctx, userID)
	if err != nil {
		return err
	}
	return s.repo.DeleteCertification(ctx, pid, id)
}

package candidate

import (
	"context"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for candidate profiles.
// Update and Delete methods match on both id and candidate id and return
// ErrNotFound when nothing matched.
type Repository interface {
	GetProfile(ctx context.Context, id string) (*domain.CandidateProfile, error)
	GetProfileByUser(ctx context.Context, userID string) (*domain.CandidateProfile, error)
	// CreateProfile returns ErrDuplicate if the user already has a profile.
	CreateProfile(ctx context.Context, p *domain.CandidateProfile) error
	UpdateProfile(ctx context.Context, p *domain.CandidateProfile) error

	ListSkills(ctx context.Context, candidateID string) ([]domain.Skill, error)
	// AddSkill returns ErrDuplicate for a name already on the profile.
	AddSkill(ctx context.Context, s *domain.Skill) error
	UpdateSkill(ctx context.Context, s *domain.Skill) error
	DeleteSkill(ctx context.Context, candidateID, id string) error

	ListEducation(ctx context.Context, candidateID string) ([]domain.Education, error)
	AddEducation(ctx context.Context, e *domain.Education) error
	UpdateEducation(ctx context.Context, e *domain.Education) error
	DeleteEducation(ctx context.Context, candidateID, id string) error

	ListExperience(ctx context.Context, candidateID string) ([]domain.Experience, error)
	AddExperience(ctx context.Context, e *domain.Experience) error
	UpdateExperience(ctx context.Context, e *domain.Experience) error
	DeleteExperience(ctx context.Context, candidateID, id string) error

	ListCertifications(ctx context.Context, candidateID string) ([]domain.Certification, error)
	AddCertification(ctx context.Context, c *domain.Certification) error
	UpdateCertification(ctx context.Context, c *domain.Certification) error
	DeleteCertification(ctx context.Context, candidateID, id string) error
}

// UserDirectory resolves the account behind a profile.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// DocumentLookup reads uploaded documents.
type DocumentLookup interface {
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// unchanged.
type ProfileUpdate struct {
	Headline         *string              `json:"headline"`
	Summary          *string              `json:"summary"`
	Location         *string              `json:"location"`
	Phone            *string              `json:"phone"`
	YearsExperience  *int                 `json:"years_experience"`
	Availability     *domain.Availability `json:"availability"`
	DesiredRoles     *[]string            `json:"desired_roles"`
	LinkedInURL      *string              `json:"linkedin_url"`
	AvatarDocumentID *string              `json:"avatar_document_id"`
	Visible          *bool                `json:"visible"`
}

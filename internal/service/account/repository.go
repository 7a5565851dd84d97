package account

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
)

// Repository defines the data access contract for users and their
// credential tokens.
type Repository interface {
	// CreateUser inserts u. Returns ErrEmailTaken if the email exists.
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, hash string) error
	MarkVerified(ctx context.Context, userID string, at time.Time) error
	LinkGoogle(ctx context.Context, userID, googleID string) error
	TouchLogin(ctx context.Context, userID string, at time.Time) error
	SetRole(ctx context.Context, userID string, role domain.Role) error
	Stats(ctx context.Context) (*domain.PlatformStats, error)

	CreateVerificationToken(ctx context.Context, t *domain.VerificationToken) error
	// GetVerificationToken returns ErrTokenNotFound for unknown hashes.
	GetVerificationToken(ctx context.Context, hash string) (*domain.VerificationToken, error)
	DeleteVerificationTokens(ctx context.Context, userID string) error

	CreateResetToken(ctx context.Context, t *domain.PasswordResetToken) error
	// GetResetToken returns ErrTokenNotFound for unknown hashes.
	GetResetToken(ctx context.Context, hash string) (*domain.PasswordResetToken, error)
	// UseResetToken marks the token used and stores the new password hash
	// atomically. Returns ErrTokenExpired if the token was used meanwhile.
	UseResetToken(ctx context.Context, tokenID, userID, passwordHash string, at time.Time) error

	// PurgeTokens deletes expired tokens and used reset tokens.
	PurgeTokens(ctx context.Context, now time.Time) (int64, error)
}

// Mailer delivers the links produced by the credential flows.
type Mailer interface {
	SendVerification(ctx context.Context, u *domain.User, token string) error
	SendPasswordReset(ctx context.Context, u *domain.User, token string) error
}

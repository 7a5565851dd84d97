package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
)

// Token lifetimes.
const (
	VerificationTTL  = 24 * time.Hour
	PasswordResetTTL = time.Hour
)

// Service implements account business logic. It is safe for concurrent use.
type Service struct {
	repo   Repository
	mailer Mailer
	now    func() time.Time
}

// NewService creates an account service. mailer may be nil, in which case
// no emails are sent.
func NewService(repo Repository, mailer Mailer) *Service {
	return &Service{repo: repo, mailer: mailer, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Role     domain.Role `json:"role"`
}

// GoogleIdentity is the profile returned by Google sign-in.
type GoogleIdentity struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
}

// Register creates an unverified account and emails a verification link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, err := parseEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if !in.Role.SelfService() {
		return nil, ErrInvalidRole
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalid("name", "is required")
	}
	if len(name) > 200 {
		return nil, domain.Invalid("name", "must be at most 200 characters")
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &domain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, u); err != nil {
		logger.Warn("verification email not sent", "user_id", u.ID, "error", err)
	}
	return u, nil
}

// Authenticate checks an email/password pair and records the login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	now := s.now()
	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	u.LastLoginAt = &now
	return u, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

// VerifyEmail redeems a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	t, err := s.repo.GetVerificationToken(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}
	now := s.now()
	if t.Expired(now) {
		return nil, ErrTokenExpired
	}
	if err := s.repo.MarkVerified(ctx, t.UserID, now); err != nil {
		return nil, err
	}
	if err := s.repo.DeleteVerificationTokens(ctx, t.UserID); err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, t.UserID)
}

// ResendVerification issues a new verification link.
func (s *Service) ResendVerification(ctx context.Context, userID string) error {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.IsVerified() {
		return ErrAlreadyVerified
	}
	return s.sendVerification(ctx, u)
}

func (s *Service) sendVerification(ctx context.Context, u *domain.User) error {
	raw, hash, err := newToken()
	if err != nil {
		return err
	}
	now := s.now()
	t := &domain.VerificationToken{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(VerificationTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateVerificationToken(ctx, t); err != nil {
		return err
	}
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendVerification(ctx, u, raw)
}

// RequestPasswordReset emails a reset link if the address belongs to an
// account. Unknown addresses are not reported to the caller.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	raw, hash, err := newToken()
	if err != nil {
		return err
	}
	now := s.now()
	t := &domain.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(PasswordResetTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreateResetToken(ctx, t); err != nil {
		return err
	}
	if s.mailer != nil {
		if err := s.mailer.SendPasswordReset(ctx, u, raw); err != nil {
			logger.Warn("password reset email not sent", "user_id", u.ID, "error", err)
		}
	}
	return nil
}

// ResetPassword redeems a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	t, err := s.repo.GetResetToken(ctx, hashToken(token))
	if err != nil {
		return err
	}
	now := s.now()
	if !t.Redeemable(now) {
		return ErrTokenExpired
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.repo.UseResetToken(ctx, t.ID, t.UserID, hash, now)
}

// ChangePassword replaces the password of a signed-in user after checking
// the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash != "" && !auth.CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, userID, hash)
}

// LoginWithGoogle signs in a Google identity. Known Google ids sign in
// directly; a verified Google email matching an existing account links it;
// anything else becomes a new verified candidate account.
func (s *Service) LoginWithGoogle(ctx context.Context, id GoogleIdentity) (*domain.User, error) {
	now := s.now()

	u, err := s.repo.GetUserByGoogleID(ctx, id.ID)
	if err == nil {
		if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
			return nil, err
		}
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	email, err := parseEmail(id.Email)
	if err != nil {
		return nil, err
	}

	u, err = s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !id.EmailVerified {
			return nil, ErrEmailTaken
		}
		if err := s.repo.LinkGoogle(ctx, u.ID, id.ID); err != nil {
			return nil, err
		}
		if !u.IsVerified() {
			if err := s.repo.MarkVerified(ctx, u.ID, now); err != nil {
				return nil, err
			}
			u.EmailVerifiedAt = &now
		}
		u.GoogleID = id.ID
	case errors.Is(err, ErrNotFound):
		name := strings.TrimSpace(id.Name)
		if name == "" {
			name = strings.SplitN(email, "@", 2)[0]
		}
		u = &domain.User{
			ID:        uuid.New().String(),
			Email:     email,
			Name:      name,
			Role:      domain.RoleCandidate,
			GoogleID:  id.ID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if id.EmailVerified {
			u.EmailVerifiedAt = &now
		}
		if err := s.repo.CreateUser(ctx, u); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.repo.TouchLogin(ctx, u.ID, now); err != nil {
		return nil, err
	}
	return u, nil
}

// SetRole changes the role of the account registered under email.
func (s *Service) SetRole(ctx context.Context, email string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	u, err := s.repo.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRole(ctx, u.ID, role); err != nil {
		return nil, err
	}
	u.Role = role
	return u, nil
}

// Stats returns platform-wide counts.
func (s *Service) Stats(ctx context.Context) (*domain.PlatformStats, error) {
	return s.repo.Stats(ctx)
}

// PurgeTokens removes expired and used credential tokens.
func (s *Service) PurgeTokens(ctx context.Context) (int64, error) {
	return s.repo.PurgeTokens(ctx, s.now())
}

func parseEmail(raw string) (string, error) {
	email := domain.NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func newToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

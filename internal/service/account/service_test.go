package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/repository/memory"
	"github.com/pmonetwork/pmo-network/internal/service/account"
)

type fakeMailer struct {
	verify map[string]string
	reset  map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{verify: map[string]string{}, reset: map[string]string{}}
}

func (m *fakeMailer) SendVerification(_ context.Context, u *domain.User, token string) error {
	m.verify[u.Email] = token
	return nil
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, u *domain.User, token string) error {
	m.reset[u.Email] = token
	return nil
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T) (*account.Service, *fakeMailer, *clock, *memory.Store) {
	t.Helper()
	store := memory.New()
	mailer := newFakeMailer()
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc := account.NewService(store.Accounts(), mailer).WithClock(c.now)
	return svc, mailer, c, store
}

func register(t *testing.T, svc *account.Service, email string, role domain.Role) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), account.RegisterInput{
		Email: email, Password: "correct-horse", Name: "Pat Doe", Role: role,
	})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	svc, mailer, _, _ := setup(t)
	ctx := context.Background()

	u := register(t, svc, "  Pat@Example.COM ", domain.RoleCandidate)
	assert.Equal(t, "pat@example.com", u.Email)
	assert.Equal(t, domain.RoleCandidate, u.Role)
	assert.False(t, u.IsVerified())
	assert.NotEqual(t, "correct-horse", u.PasswordHash)
	assert.NotEmpty(t, mailer.verify["pat@example.com"])

	_, err := svc.Register(ctx, account.RegisterInput{Email: "PAT@example.com", Password: "another-pass", Name: "X", Role: domain.RoleEmployer})
	assert.ErrorIs(t, err, account.ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   account.RegisterInput
		want error
	}{
		{"bad email", account.RegisterInput{Email: "not-an-email", Password: "longenough", Name: "A", Role: domain.RoleCandidate}, account.ErrInvalidEmail},
		{"admin role", account.RegisterInput{Email: "a@b.co", Password: "longenough", Name: "A", Role: domain.RoleAdmin}, account.ErrInvalidRole},
		{"weak password", account.RegisterInput{Email: "a@b.co", Password: "short", Name: "A", Role: domain.RoleCandidate}, auth.ErrWeakPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Register(ctx, account.RegisterInput{Email: "a@b.co", Password: "longenough", Name: "  ", Role: domain.RoleCandidate})
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestAuthenticate(t *testing.T) {
	svc, _, c, _ := setup(t)
	ctx := context.Background()
	register(t, svc, "pat@example.com", domain.RoleCandidate)

	u, err := svc.Authenticate(ctx, "PAT@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, u.LastLoginAt)
	assert.True(t, u.LastLoginAt.Equal(c.t))

	_, err = svc.Authenticate(ctx, "pat@example.com", "wrong-horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestVerifyEmail(t *testing.T) {
	svc, mailer, _, _ := setup(t)
	ctx := context.Background()
	u := register(t, svc, "pat@example.com", domain.RoleCandidate)
	token := mailer.verify[u.Email]

	_, err := svc.VerifyEmail(ctx, "bogus")
	assert.ErrorIs(t, err, account.ErrTokenNotFound)

	verified, err := svc.VerifyEmail(ctx, token)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified())

	_, err = svc.VerifyEmail(ctx, token)
	assert.ErrorIs(t, err, account.ErrTokenNotFound)

	assert.ErrorIs(t, svc.ResendVerification(ctx, u.ID), account.ErrAlreadyVerified)
}

func TestVerifyEmailExpired(t *testing.T) {
	svc, mailer, c, _ := setup(t)
	ctx := context.Background()
	u := register(t, svc, "pat@example.com", domain.RoleCandidate)

	c.t = c.t.Add(account.VerificationTTL + time.Minute)
	_, err := svc.VerifyEmail(ctx, mailer.verify[u.Email])
	assert.ErrorIs(t, err, account.ErrTokenExpired)

	require.NoError(t, svc.ResendVerification(ctx, u.ID))
	_, err = svc.VerifyEmail(ctx, mailer.verify[u.Email])
	assert.NoError(t, err)
}

func TestPasswordReset(t *testing.T) {
	svc, mailer, _, _ := setup(t)
	ctx := context.Background()
	register(t, svc, "pat@example.com", domain.RoleCandidate)

	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.reset)

	require.NoError(t, svc.RequestPasswordReset(ctx, "pat@example.com"))
	token := mailer.reset["pat@example.com"]
	require.NotEmpty(t, token)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "bogus", "brand-new-pass"), account.ErrTokenNotFound)
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "short"), auth.ErrWeakPassword)
	require.NoError(t, svc.ResetPassword(ctx, token, "brand-new-pass"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "another-pass"), account.ErrTokenExpired)

	_, err := svc.Authenticate(ctx, "pat@example.com", "brand-new-pass")
	assert.NoError(t, err)
	_, err = svc.Authenticate(ctx, "pat@example.com", "correct-horse")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestPasswordResetExpired(t *testing.T) {
	svc, mailer, c, _ := setup(t)
	ctx := context.Background()
	register(t, svc, "pat@example.com", domain.RoleCandidate)
	require.NoError(t, svc.RequestPasswordReset(ctx, "pat@example.com"))

	c.t = c.t.Add(account.PasswordResetTTL)
	assert.ErrorIs(t, svc.ResetPassword(ctx, mailer.reset["pat@example.com"], "brand-new-pass"), account.ErrTokenExpired)

	n, err := svc.PurgeTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestChangePassword(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()
	u := register(t, svc, "pat@example.com", domain.RoleCandidate)

	assert.ErrorIs(t, svc.ChangePassword(ctx, u.ID, "nope-nope", "brand-new-pass"), account.ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(ctx, u.ID, "correct-horse", "brand-new-pass"))
	_, err := svc.Authenticate(ctx, u.Email, "brand-new-pass")
	assert.NoError(t, err)
}

func TestLoginWithGoogle(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()

	created, err := svc.LoginWithGoogle(ctx, account.GoogleIdentity{ID: "g-1", Email: "New@Example.com", Name: "New Person", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCandidate, created.Role)
	assert.Equal(t, "new@example.com", created.Email)
	assert.True(t, created.IsVerified())

	again, err := svc.LoginWithGoogle(ctx, account.GoogleIdentity{ID: "g-1", Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	existing := register(t, svc, "pat@example.com", domain.RoleEmployer)
	_, err = svc.LoginWithGoogle(ctx, account.GoogleIdentity{ID: "g-2", Email: "pat@example.com", EmailVerified: false})
	assert.ErrorIs(t, err, account.ErrEmailTaken)

	linked, err := svc.LoginWithGoogle(ctx, account.GoogleIdentity{ID: "g-2", Email: "pat@example.com", EmailVerified: true})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.Equal(t, domain.RoleEmployer, linked.Role)
	assert.True(t, linked.IsVerified())
	assert.Equal(t, "g-2", linked.GoogleID)

	// Google-only accounts cannot sign in with a password.
	_, err = svc.Authenticate(ctx, "new@example.com", "")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestSetRoleAndStats(t *testing.T) {
	svc, _, _, _ := setup(t)
	ctx := context.Background()
	register(t, svc, "pat@example.com", domain.RoleCandidate)
	register(t, svc, "boss@example.com", domain.RoleEmployer)

	_, err := svc.SetRole(ctx, "pat@example.com", domain.Role("root"))
	assert.ErrorIs(t, err, account.ErrInvalidRole)
	_, err = svc.SetRole(ctx, "ghost@example.com", domain.RoleAdmin)
	assert.ErrorIs(t, err, account.ErrNotFound)

	u, err := svc.SetRole(ctx, "PAT@example.com", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Users[domain.RoleAdmin])
	assert.Equal(t, 1, st.Users[domain.RoleEmployer])
	assert.Equal(t, 0, st.VerifiedUsers)
}

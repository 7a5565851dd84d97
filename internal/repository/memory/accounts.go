package memory

import (
	"context"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/account"
)

// AccountRepo implements account.Repository.
type AccountRepo struct{ s *Store }

var _ account.Repository = (*AccountRepo)(nil)

func (r *AccountRepo) CreateUser(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, x := range r.s.users {
		if x.Email == u.Email || (u.GoogleID != "" && x.GoogleID == u.GoogleID) {
			return account.ErrEmailTaken
		}
	}
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *AccountRepo) GetUser(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *AccountRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, account.ErrNotFound
}

func (r *AccountRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return u.Email == email })
}

func (r *AccountRepo) GetUserByGoogleID(_ context.Context, googleID string) (*domain.User, error) {
	if googleID == "" {
		return nil, account.ErrNotFound
	}
	return r.find(func(u *domain.User) bool { return u.GoogleID == googleID })
}

func (r *AccountRepo) update(userID string, fn func(*domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return account.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.s.Now()
	return nil
}

func (r *AccountRepo) UpdatePassword(_ context.Context, userID, hash string) error {
	return r.update(userID, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *AccountRepo) MarkVerified(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *domain.User) { u.EmailVerifiedAt = &at })
}

func (r *AccountRepo) LinkGoogle(_ context.Context, userID, googleID string) error {
	return r.update(userID, func(u *domain.User) { u.GoogleID = googleID })
}

func (r *AccountRepo) TouchLogin(_ context.Context, userID string, at time.Time) error {
	return r.update(userID, func(u *domain.User) { u.LastLoginAt = &at })
}

func (r *AccountRepo) SetRole(_ context.Context, userID string, role domain.Role) error {
	return r.update(userID, func(u *domain.User) { u.Role = role })
}

func (r *AccountRepo) Stats(_ context.Context) (*domain.PlatformStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st := &domain.PlatformStats{Users: map[domain.Role]int{}}
	for _, u := range r.s.users {
		st.Users[u.Role]++
		if u.IsVerified() {
			st.VerifiedUsers++
		}
	}
	for _, j := range r.s.jobs {
		if j.Status == domain.JobOpen {
			st.OpenJobs++
		}
	}
	st.Applications = len(r.s.applications)
	st.Documents = len(r.s.documents)
	st.Messages = len(r.s.messages)
	return st, nil
}

func (r *AccountRepo) CreateVerificationToken(_ context.Context, t *domain.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.UserID]; !ok {
		return account.ErrNotFound
	}
	cp := *t
	r.s.verifyTokens[t.ID] = &cp
	return nil
}

func (r *AccountRepo) GetVerificationToken(_ context.Context, hash string) (*domain.VerificationToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.verifyTokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, account.ErrTokenNotFound
}

func (r *AccountRepo) DeleteVerificationTokens(_ context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, t := range r.s.verifyTokens {
		if t.UserID == userID {
			delete(r.s.verifyTokens, id)
		}
	}
	return nil
}

func (r *AccountRepo) CreateResetToken(_ context.Context, t *domain.PasswordResetToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[t.UserID]; !ok {
		return account.ErrNotFound
	}
	cp := *t
	r.s.resetTokens[t.ID] = &cp
	return nil
}

func (r *AccountRepo) GetResetToken(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, t := range r.s.resetTokens {
		if t.TokenHash == hash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, account.ErrTokenNotFound
}

func (r *AccountRepo) UseResetToken(_ context.Context, tokenID, userID, passwordHash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resetTokens[tokenID]
	if !ok {
		return account.ErrTokenNotFound
	}
	if t.UsedAt != nil {
		return account.ErrTokenExpired
	}
	u, ok := r.s.users[userID]
	if !ok {
		return account.ErrNotFound
	}
	t.UsedAt = &at
	u.PasswordHash = passwordHash
	u.UpdatedAt = at
	return nil
}

func (r *AccountRepo) PurgeTokens(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for id, t := range r.s.verifyTokens {
		if t.Expired(now) {
			delete(r.s.verifyTokens, id)
			n++
		}
	}
	usedCutoff := now.Add(-24 * time.Hour)
	for id, t := range r.s.resetTokens {
		if !now.Before(t.ExpiresAt) || (t.UsedAt != nil && t.UsedAt.Before(usedCutoff)) {
			delete(r.s.resetTokens, id)
			n++
		}
	}
	return n, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/service/account"
)

// AccountRepo implements account.Repository against PostgreSQL.
type AccountRepo struct{ db *sql.DB }

var _ account.Repository = (*AccountRepo)(nil)

// NewAccountRepo creates a Postgres-backed account repository.
func NewAccountRepo(db *sql.DB) *AccountRepo { return &AccountRepo{db: db} }

const userColumns = `id, email, name, password_hash, role, COALESCE(google_id, ''),
	email_verified_at, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Role, &u.GoogleID,
		&u.EmailVerifiedAt, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if isMissing(err) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *AccountRepo) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, google_id,
			email_verified_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
	`, u.ID, u.Email, u.Name, u.PasswordHash, u.Role, u.GoogleID,
		u.EmailVerifiedAt, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return account.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *AccountRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *AccountRepo) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	if googleID == "" {
		return nil, account.ErrNotFound
	}
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID))
}

// setUser updates one column of a user row.
func (r *AccountRepo) setUser(ctx context.Context, userID, column string, val interface{}) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = $1, updated_at = NOW() WHERE id = $2`, column),
		val, userID)
	if isUniqueViolation(err) {
		return account.ErrEmailTaken
	}
	if isInvalidText(err) {
		return account.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (r *AccountRepo) UpdatePassword(ctx context.Context, userID, hash string) error {
	return r.setUser(ctx, userID, "password_hash", hash)
}

func (r *AccountRepo) MarkVerified(ctx context.Context, userID string, at time.Time) error {
	return r.setUser(ctx, userID, "email_verified_at", at)
}

func (r *AccountRepo) LinkGoogle(ctx context.Context, userID, googleID string) error {
	return r.setUser(ctx, userID, "google_id", googleID)
}

func (r *AccountRepo) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	return r.setUser(ctx, userID, "last_login_at", at)
}

func (r *AccountRepo) SetRole(ctx context.Context, userID string, role domain.Role) error {
	return r.setUser(ctx, userID, "role", role)
}

func (r *AccountRepo) Stats(ctx context.Context) (*domain.PlatformStats, error) {
	st := &domain.PlatformStats{Users: map[domain.Role]int{}}
	rows, err := r.db.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role domain.Role
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan user count: %w", err)
		}
		st.Users[role] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE email_verified_at IS NOT NULL),
			(SELECT COUNT(*) FROM jobs WHERE status = 'open'),
			(SELECT COUNT(*) FROM applications),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM messages)
	`).Scan(&st.VerifiedUsers, &st.OpenJobs, &st.Applications, &st.Documents, &st.Messages)
	if err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}
	return st, nil
}

func (r *AccountRepo) CreateVerificationToken(ctx context.Context, t *domain.VerificationToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO verification_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if isDanglingRef(err) {
		return account.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("create verification token: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetVerificationToken(ctx context.Context, hash string) (*domain.VerificationToken, error) {
	t := &domain.VerificationToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, created_at
		FROM verification_tokens WHERE token_hash = $1
	`, hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt)
	if isMissing(err) {
		return nil, account.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get verification token: %w", err)
	}
	return t, nil
}

func (r *AccountRepo) DeleteVerificationTokens(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete verification tokens: %w", err)
	}
	return nil
}

func (r *AccountRepo) CreateResetToken(ctx context.Context, t *domain.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	if isDanglingRef(err) {
		return account.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

func (r *AccountRepo) GetResetToken(ctx context.Context, hash string) (*domain.PasswordResetToken, error) {
	t := &domain.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used_at, created_at
		FROM password_reset_tokens WHERE token_hash = $1
	`, hash).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.UsedAt, &t.CreatedAt)
	if isMissing(err) {
		return nil, account.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reset token: %w", err)
	}
	return t, nil
}

func (r *AccountRepo) UseResetToken(ctx context.Context, tokenID, userID, passwordHash string, at time.Time) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE password_reset_tokens SET used_at = $1
			WHERE id = $2 AND used_at IS NULL
		`, at, tokenID)
		if err != nil {
			return fmt.Errorf("use reset token: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return account.ErrTokenExpired
		}
		res, err = tx.ExecContext(ctx, `
			UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3
		`, passwordHash, at, userID)
		if err != nil {
			return fmt.Errorf("reset password: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return account.ErrNotFound
		}
		return nil
	})
}

func (r *AccountRepo) PurgeTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge verification tokens: %w", err)
	}
	verify, _ := res.RowsAffected()

	res, err = r.db.ExecContext(ctx, `
		DELETE FROM password_reset_tokens
		WHERE expires_at <= $1 OR used_at < $2
	`, now, now.Add(-24*time.Hour))
	if err != nil {
		return verify, fmt.Errorf("purge reset tokens: %w", err)
	}
	reset, _ := res.RowsAffected()
	return verify + reset, nil
}

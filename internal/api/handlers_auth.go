package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/service/account"
)

// sessionResponse is returned by every endpoint that signs a user in.
type sessionResponse struct {
	User  *domain.User `json:"user"`
	Token string       `json:"token"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handlers) record(ctx context.Context, userID, action, entityType, entityID string) {
	if h.svc.Activity != nil {
		h.svc.Activity.Record(ctx, userID, action, entityType, entityID, nil)
	}
}

func (h *Handlers) signIn(w http.ResponseWriter, r *http.Request, status int, u *domain.User) {
	token, err := h.sessions.Issue(w, u)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.JSON(w, status, sessionResponse{User: u, Token: token})
}

// Register creates an account and signs it in.
// @Summary Register
// @Tags auth
// @Accept json
// @Produce json
// @Param body body account.RegisterInput true "New account"
// @Success 201 {object} sessionResponse
// @Failure 400 {object} httputil.ErrorResponse
// @Failure 409 {object} httputil.ErrorResponse
// @Router /auth/register [post]
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in account.RegisterInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	u, err := h.svc.Accounts.Register(r.Context(), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), u.ID, "auth.registered", "user", u.ID)
	h.signIn(w, r, http.StatusCreated, u)
}

// Login checks credentials and issues a session. Attempts are limited per
// client IP and email.
// @Summary Log in
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "Credentials"
// @Success 200 {object} sessionResponse
// @Failure 401 {object} httputil.ErrorResponse
// @Failure 429 {object} httputil.ErrorResponse
// @Router /auth/login [post]
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	ctx := r.Context()
	key := clientIP(r) + "|" + domain.NormalizeEmail(in.Email)

	if h.loginLimiter != nil {
		allowed, retryAfter, err := h.loginLimiter.Allow(ctx, key)
		if err != nil {
			// Limiter errors fail open.
			logger.Warn("login rate limit unavailable", "error", err)
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			respondErr(w, r, errRateLimited)
			return
		}
	}

	u, err := h.svc.Accounts.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if h.loginLimiter != nil {
		if err := h.loginLimiter.Reset(ctx, key); err != nil {
			logger.Warn("login rate limit not reset", "error", err)
		}
	}
	h.record(ctx, u.ID, "auth.login", "user", u.ID)
	h.signIn(w, r, http.StatusOK, u)
}

// Logout clears the session cookie.
// @Summary Log out
// @Tags auth
// @Success 204
// @Router /auth/logout [post]
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	httputil.NoContent(w)
}

// Me returns the signed-in user.
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} domain.User
// @Failure 401 {object} httputil.ErrorResponse
// @Router /auth/me [get]
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Accounts.GetUser(r.Context(), claims(r).UserID())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.OK(w, u)
}

// VerifyEmail redeems a verification token.
// @Summary Verify email
// @Tags auth
// @Accept json
// @Produce json
// @Param body body tokenRequest true "Token from the email"
// @Success 200 {object} domain.User
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 410 {object} httputil.ErrorResponse
// @Router /auth/verify-email [post]
func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	u, err := h.svc.Accounts.VerifyEmail(r.Context(), strings.TrimSpace(in.Token))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), u.ID, "auth.email_verified", "user", u.ID)
	httputil.OK(w, u)
}

// ResendVerification emails a fresh verification link.
func (h *Handlers) ResendVerification(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Accounts.ResendVerification(r.Context(), claims(r).UserID()); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ForgotPassword starts a password reset. The answer is the same whether
// or not the address has an account.
// @Summary Request password reset
// @Tags auth
// @Accept json
// @Param body body emailRequest true "Account email"
// @Success 202
// @Router /auth/forgot-password [post]
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	if err := h.svc.Accounts.RequestPasswordReset(r.Context(), in.Email); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.JSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

// ResetPassword redeems a reset token.
// @Summary Reset password
// @Tags auth
// @Accept json
// @Param body body resetPasswordRequest true "Token and new password"
// @Success 204
// @Failure 404 {object} httputil.ErrorResponse
// @Failure 410 {object} httputil.ErrorResponse
// @Router /auth/reset-password [post]
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetPasswordRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	if err := h.svc.Accounts.ResetPassword(r.Context(), strings.TrimSpace(in.Token), in.Password); err != nil {
		respondErr(w, r, err)
		return
	}
	httputil.NoContent(w)
}

// ChangePassword replaces the signed-in user's password.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if !httputil.Decode(w, r, &in) {
		return
	}
	userID := claims(r).UserID()
	if err := h.svc.Accounts.ChangePassword(r.Context(), userID, in.CurrentPassword, in.NewPassword); err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), userID, "auth.password_changed", "user", userID)
	httputil.NoContent(w)
}

// GoogleLogin redirects to Google's consent screen.
func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	h.google.HandleLogin(w, r)
}

// GoogleCallback completes Google sign-in and sends the browser back to
// the web app.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	info, err := h.google.Complete(w, r)
	if err != nil {
		logger.Warn("google sign-in failed", "error", err)
		http.Redirect(w, r, fmt.Sprintf("%s/login?error=google", h.appURL), http.StatusTemporaryRedirect)
		return
	}
	u, err := h.svc.Accounts.LoginWithGoogle(r.Context(), account.GoogleIdentity{
		ID:            info.ID,
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: info.VerifiedEmail,
	})
	if err != nil {
		logger.Error("google account not signed in", "error", err)
		http.Redirect(w, r, fmt.Sprintf("%s/login?error=google", h.appURL), http.StatusTemporaryRedirect)
		return
	}
	if _, err := h.sessions.Issue(w, u); err != nil {
		respondErr(w, r, err)
		return
	}
	h.record(r.Context(), u.ID, "auth.login_google", "user", u.ID)
	http.Redirect(w, r, h.appURL+"/", http.StatusTemporaryRedirect)
}

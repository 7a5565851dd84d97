package api

import (
	"net"
	"net/http"
	"strings"

	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/ratelimit"
	"github.com/pmonetwork/pmo-network/internal/realtime"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/activity"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
	"github.com/pmonetwork/pmo-network/internal/service/job"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// Services bundles the business services behind the HTTP handlers.
type Services struct {
	Accounts     *account.Service
	Candidates   *candidate.Service
	Employers    *employer.Service
	Jobs         *job.Service
	Applications *application.Service
	Documents    *document.Service
	Messaging    *messaging.Service
	Activity     *activity.Service
}

// Handlers contains all HTTP handlers
type Handlers struct {
	svc          Services
	sessions     *auth.SessionManager
	google       *auth.GoogleProvider
	loginLimiter ratelimit.Limiter
	hub          *realtime.Hub
	appURL       string
}

// Options carries the optional collaborators of the handlers.
type Options struct {
	// Google enables /auth/google/* when set.
	Google *auth.GoogleProvider
	// LoginLimiter throttles POST /api/auth/login per client IP and email.
	LoginLimiter ratelimit.Limiter
	// Hub serves GET /api/events.
	Hub *realtime.Hub
	// AppURL is where the Google callback sends the browser afterwards.
	AppURL string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(svc Services, sessions *auth.SessionManager, opts Options) *Handlers {
	return &Handlers{
		svc:          svc,
		sessions:     sessions,
		google:       opts.Google,
		loginLimiter: opts.LoginLimiter,
		hub:          opts.Hub,
		appURL:       strings.TrimRight(opts.AppURL, "/"),
	}
}

// claims returns the session of an authenticated request. Routes that call
// it sit behind RequireAuth.
func claims(r *http.Request) *auth.Claims {
	return auth.ClaimsFromContext(r.Context())
}

// candidateActor resolves the caller's candidate profile, creating it on
// first use.
func (h *Handlers) candidateActor(r *http.Request) (domain.Actor, error) {
	c := claims(r)
	p, err := h.svc.Candidates.GetProfile(r.Context(), c.UserID())
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: c.UserID(), ProfileID: p.ID, Role: c.Role}, nil
}

// employerActor resolves the caller's employer profile, creating it on
// first use.
func (h *Handlers) employerActor(r *http.Request) (domain.Actor, error) {
	c := claims(r)
	p, err := h.svc.Employers.GetProfile(r.Context(), c.UserID())
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: c.UserID(), ProfileID: p.ID, Role: c.Role}, nil
}

// viewer identifies the caller without resolving a profile.
func viewer(r *http.Request) domain.Actor {
	c := claims(r)
	return domain.Actor{UserID: c.UserID(), Role: c.Role}
}

// clientIP returns the request's remote address without the port.
// middleware.RealIP has already applied X-Forwarded-For.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// withClientIP makes the caller's address available to the activity log.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := activity.WithIP(r.Context(), clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

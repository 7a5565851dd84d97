package api

import (
	"errors"
	"net/http"

	"github.com/pmonetwork/pmo-network/internal/auth"
	"github.com/pmonetwork/pmo-network/internal/domain"
	"github.com/pmonetwork/pmo-network/internal/pkg/httputil"
	"github.com/pmonetwork/pmo-network/internal/pkg/logger"
	"github.com/pmonetwork/pmo-network/internal/service/account"
	"github.com/pmonetwork/pmo-network/internal/service/application"
	"github.com/pmonetwork/pmo-network/internal/service/candidate"
	"github.com/pmonetwork/pmo-network/internal/service/document"
	"github.com/pmonetwork/pmo-network/internal/service/employer"
	"github.com/pmonetwork/pmo-network/internal/service/job"
	"github.com/pmonetwork/pmo-network/internal/service/messaging"
)

// errRateLimited is answered with 429.
var errRateLimited = errors.New("too many attempts, try again later")

// statusFor maps service errors to HTTP status codes. Anything unknown is
// a 500.
func statusFor(err error) int {
	var verr *domain.ValidationError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &verr), errors.As(err, &maxErr):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrInvalidEmail),
		errors.Is(err, account.ErrInvalidRole),
		errors.Is(err, account.ErrAlreadyVerified),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, application.ErrInvalidTransition),
		errors.Is(err, application.ErrJobNotOpen),
		errors.Is(err, job.ErrInvalidTransition),
		errors.Is(err, job.ErrImportDisabled),
		errors.Is(err, document.ErrTooLarge),
		errors.Is(err, document.ErrUnsupportedType),
		errors.Is(err, document.ErrEmptyFile),
		errors.Is(err, document.ErrInvalidShareTarget),
		errors.Is(err, messaging.ErrInvalidRecipient):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrInvalidCredentials),
		errors.Is(err, auth.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, account.ErrNotFound),
		errors.Is(err, account.ErrTokenNotFound),
		errors.Is(err, application.ErrNotFound),
		errors.Is(err, application.ErrJobNotFound),
		errors.Is(err, candidate.ErrNotFound),
		errors.Is(err, employer.ErrNotFound),
		errors.Is(err, employer.ErrCandidateNotFound),
		errors.Is(err, job.ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, document.ErrShareNotFound),
		errors.Is(err, messaging.ErrNotFound),
		errors.Is(err, messaging.ErrRecipientNotFound),
		errors.Is(err, messaging.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, account.ErrEmailTaken),
		errors.Is(err, application.ErrAlreadyApplied),
		errors.Is(err, application.ErrStaleStatus),
		errors.Is(err, candidate.ErrDuplicate),
		errors.Is(err, employer.ErrDuplicate),
		errors.Is(err, job.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, account.ErrTokenExpired),
		errors.Is(err, document.ErrShareExpired):
		return http.StatusGone
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// respondErr writes err with the mapped status. 5xx bodies are generic;
// the real error is only logged.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err)
		httputil.Error(w, status, safeErrorMessage(status))
		return
	}
	httputil.Error(w, status, err.Error())
}

// safeErrorMessage is the public message for a 5xx status.
func safeErrorMessage(status int) string {
	if status == http.StatusServiceUnavailable {
		return "service temporarily unavailable"
	}
	return "internal server error"
}

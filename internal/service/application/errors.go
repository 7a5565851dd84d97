package application

import "errors"

// Sentinel errors for the application service layer.
var (
	ErrNotFound          = errors.New("application not found")
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotOpen        = errors.New("job is not accepting applications")
	ErrAlreadyApplied    = errors.New("already applied to this job")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleStatus       = errors.New("application status changed concurrently")
)

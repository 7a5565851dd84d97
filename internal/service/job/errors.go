package job

import "errors"

// Sentinel errors for the job service layer.
var (
	ErrNotFound          = errors.New("job not found")
	ErrDuplicate         = errors.New("job already imported")
	ErrInvalidTransition = errors.New("invalid job status change")
	ErrImportDisabled    = errors.New("feed import is not configured")
)

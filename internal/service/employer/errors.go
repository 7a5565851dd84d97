package employer

import "errors"

// Sentinel errors for the employer service layer.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrCandidateNotFound = errors.New("candidate not found")
)

package candidate

import "errors"

// Sentinel errors for the candidate service layer.
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

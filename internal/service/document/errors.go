package document

import "errors"

// Sentinel errors for the document service layer.
var (
	ErrNotFound           = errors.New("document not found")
	ErrShareNotFound      = errors.New("share not found")
	ErrTooLarge           = errors.New("file exceeds the size limit for this document kind")
	ErrUnsupportedType    = errors.New("file type is not accepted for this document kind")
	ErrEmptyFile          = errors.New("file is empty")
	ErrShareExpired       = errors.New("document share has expired")
	ErrInvalidShareTarget = errors.New("documents can only be shared with employers")
)

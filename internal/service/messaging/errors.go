package messaging

import "errors"

// Sentinel errors for the messaging service layer.
var (
	ErrNotFound          = errors.New("conversation not found")
	ErrInvalidRecipient  = errors.New("invalid message recipient")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrJobNotFound       = errors.New("job not found")
)

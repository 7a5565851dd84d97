// Package account implements registration, sign-in and the credential
// flows (email verification, password reset, password change, Google
// sign-in) for PMO Network users.
//
// Verification and reset tokens are random 32-byte values handed to the
// user once by email. Only their SHA-256 hashes are stored.
//
// The service layer contains pure business logic and depends on the
// Repository interface defined in repository.go. It never imports
// net/http or database/sql directly.
package account

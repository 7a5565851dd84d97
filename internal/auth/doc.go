// Package auth issues and checks session tokens, hashes passwords and runs
// the Google sign-in handshake.
//
// A session is an HS256 JWT carrying the user's id, email, name and role.
// It travels in an HttpOnly cookie for browsers and in an
// "Authorization: Bearer" header for API clients.
package auth

// Package candidate manages candidate profiles and their skills, education,
// work experience and certifications.
//
// Every collection operation is scoped to the caller's own profile. An id
// that exists but belongs to another candidate is reported as ErrNotFound.
package candidate

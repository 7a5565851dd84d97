// Package job manages job postings: the employer-side lifecycle (draft,
// open, closed), the public job board search and importing postings from
// RSS/Atom feeds.
package job

// Package document handles uploaded files: CVs, cover letters,
// certificates, videos, avatars and logos.
//
// Uploads are spooled to a temporary file through a per-kind size limit
// while their SHA-256 checksum is computed. The content type is sniffed
// from the first bytes, never taken from the client. CV and cover-letter
// text is extracted for employer search and images get a thumbnail.
//
// A document is visible to its owner, to employers it was shared with
// (until the share expires) and to employers it was submitted to as the CV
// of an application.
package document

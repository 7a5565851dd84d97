// Package mailing sends the platform's transactional email. Bodies are
// Liquid templates rendered with github.com/osteele/liquid and delivered by
// a Sender: Amazon SES in production, the log in development.
package mailing

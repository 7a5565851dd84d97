// Package employer manages employer profiles, candidate search and the
// employer's shortlist.
package employer

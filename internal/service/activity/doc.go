// Package activity keeps the per-user audit trail. Recording is best
// effort: failures are logged and never returned to the caller.
package activity

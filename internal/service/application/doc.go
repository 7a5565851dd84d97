// Package application tracks job applications through the hiring pipeline.
//
// Every status change is validated against domain.CanTransition and is
// written together with its status_history row in a single transaction
// guarded by the status the caller saw (WHERE status = from), so two
// concurrent changes cannot both succeed. Candidates may only withdraw;
// every other move belongs to the employer that owns the job.
package application

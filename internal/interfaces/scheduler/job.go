package scheduler

import "context"

// Job represents a unit of work that can be executed by the worker pool.
type Job interface {
	// Execute runs the job with the given context.
	// Context should be respected for cancellation and timeouts.
	Execute(ctx context.Context) error

	// Key identifies what the job works on. The pool never holds two jobs
	// with the same key, queued or running.
	Key() string

	// Description returns a human-readable description of the job.
	// Used for logging purposes.
	Description() string
}

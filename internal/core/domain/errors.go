// Sentinel errors shared across the pipeline and its adapters. Callers
// match them with errors.Is.
package domain

import "errors"

var (
	// ErrNotFound: popping an empty queue/cache, or a navigation request
	// with nothing left to serve.
	ErrNotFound = errors.New("nothing available")

	// ErrQueueFull: pushing a discovery queue that the caller failed to
	// check for room. A contract violation, not an overflow policy.
	ErrQueueFull = errors.New("queue full")

	// ErrRejected: artifact outside the accepted duration window. A policy
	// skip, never a fault.
	ErrRejected = errors.New("rejected by policy")

	// ErrTimeout: a collaborator call exceeded its deadline.
	ErrTimeout = errors.New("collaborator timed out")

	// ErrTransient: expected to succeed on retry.
	ErrTransient = errors.New("transient failure")

	// ErrFatal: the pipeline cannot continue (no session, no content after
	// exhausting retries at startup).
	ErrFatal = errors.New("fatal failure")
)

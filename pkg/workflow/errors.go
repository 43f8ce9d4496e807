package workflow

import "errors"

var (
	// ErrInvalidState marks a programming error: an unknown action reached the
	// routing predicate or the step ceiling was exceeded.
	ErrInvalidState = errors.New("invalid workflow state")

	// ErrSessionBusy is returned by TrySubmit while another run holds the session.
	ErrSessionBusy = errors.New("session busy")

	// ErrCancelled wraps the caller's context error. Nothing is committed.
	ErrCancelled = errors.New("workflow cancelled")

	// ErrEmptyRequest rejects blank submissions.
	ErrEmptyRequest = errors.New("empty request")
)

// ErrorTurnPrefix starts every agent turn that records a failed run.
const ErrorTurnPrefix = "An error occurred during workflow: "

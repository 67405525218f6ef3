package core

import "errors"

// Status represents the execution status of a scenario or checkpoint
type Status int

const (
	StatusPending Status = iota // Not yet started
	StatusRunning               // Currently executing
	StatusPassed                // Completed successfully
	StatusFailed                // Assertion or resolution failure
	StatusErrored               // Transport or app failure
	StatusSkipped               // Filtered out, or the session broke earlier in the run
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText lets statuses serialize as their names in reports.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal returns true if the status is a final state
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusErrored, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsSuccess returns true if the status indicates success
func (s Status) IsSuccess() bool {
	return s == StatusPassed
}

// StatusFromError maps a scenario error to its terminal status.
// Assertion and timeout failures fail the scenario; anything else errors it.
func StatusFromError(err error) Status {
	if err == nil {
		return StatusPassed
	}
	switch CategoryOf(err) {
	case ErrCategoryAssertion, ErrCategoryTimeout:
		return StatusFailed
	case ErrCategoryNone:
		var ee *ExecutionError
		if errors.As(err, &ee) {
			return StatusErrored
		}
		return StatusFailed
	default:
		return StatusErrored
	}
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryAssertion                       // Element not found, chain exhausted, check failed
	ErrCategoryTimeout                         // Operation timed out
	ErrCategoryConnection                      // Session or server connection lost
	ErrCategoryApp                             // App crashed, command rejected
	ErrCategoryConfig                          // Invalid configuration, missing required field
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryApp:
		return "app"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess           = 0   // Indicates the solve converged.
	ExitErrorGeneric      = 1   // Indicates a generic error.
	ExitErrorTimeout      = 2   // Indicates the operation timed out.
	ExitErrorMismatch     = 3   // Indicates workers disagreed on the final state.
	ExitErrorConfig       = 4   // Indicates a configuration error.
	ExitErrorNotConverged = 5   // Indicates the iteration cap was reached first.
	ExitErrorCanceled     = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a configuration error, such as invalid flags, a row
// count that does not divide across the workers, or a worker count that does
// not match the size of the running cohort. It is always reported before the
// first iteration.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// CommunicationError reports a failed send, receive or collective reduction.
// Communication failures are fatal: the cohort assumes every worker stays
// healthy for the whole run, so there is no retry path.
type CommunicationError struct {
	// Op is the failed operation ("send", "recv", "allreduce", "dial").
	Op string
	// Rank is the worker that observed the failure.
	Rank int
	// Peer is the remote rank involved, or -1 for collectives.
	Peer int
	// Cause is the underlying error.
	Cause error
}

// Error returns a formatted message describing the failed operation.
func (e CommunicationError) Error() string {
	if e.Peer < 0 {
		return fmt.Sprintf("rank %d: %s failed: %v", e.Rank, e.Op, e.Cause)
	}
	return fmt.Sprintf("rank %d: %s with rank %d failed: %v", e.Rank, e.Op, e.Peer, e.Cause)
}

// Unwrap returns the original wrapped error, allowing for error chain
// inspection (e.g., using errors.Is or errors.As).
func (e CommunicationError) Unwrap() error { return e.Cause }

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// HandleSolveError prints a one-line diagnosis for a failed solve and maps
// the error to an exit code.
//
// Parameters:
//   - err: The error returned by the solve (nil means success).
//   - duration: How long the solve ran before failing.
//   - out: The writer for the diagnosis.
//
// Returns:
//   - int: The exit code matching the error class.
func HandleSolveError(err error, duration time.Duration, out io.Writer) int {
	if err == nil {
		return ExitSuccess
	}
	var cfgErr ConfigError
	var commErr CommunicationError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprintf(out, "Configuration error: %v\n", cfgErr)
		return ExitErrorConfig
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(out, "Solve timed out after %s\n", duration.Round(time.Millisecond))
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "Solve canceled after %s\n", duration.Round(time.Millisecond))
		return ExitErrorCanceled
	case errors.As(err, &commErr):
		fmt.Fprintf(out, "Communication failure: %v\n", commErr)
		return ExitErrorGeneric
	default:
		fmt.Fprintf(out, "Solve failed: %v\n", err)
		return ExitErrorGeneric
	}
}

// Package apperrors defines the structured error types of the solver and
// maps them to process exit codes.
//
// Errors that carry a cause implement Unwrap so errors.Is and errors.As
// see through them; callers wrap with fmt.Errorf and %w.
package apperrors

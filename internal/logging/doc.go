// Package logging provides a unified logging interface for the heat solver.
// It abstracts the underlying logging implementation, allowing consistent logging
// across workers, transports and the CLI on top of zerolog.
package logging

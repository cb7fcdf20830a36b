// Package server implements the HTTP/S server that consumes a loaded
// configuration file.
// This file defines the error type returned while starting the server.
package server

import (
	"fmt"
)

// Error represents a failure while starting or stopping the server.
// It records the step that failed and the address or file involved.
type Error struct {
	Op   string // The operation that failed (e.g., "listen", "tls", "shutdown")
	Path string // Address or file involved, if any
	Err  error  // The underlying error that caused the failure
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("server %s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("server %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error to support errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// newListenError creates an error for a listener that could not be opened.
func newListenError(err error, addr string) error {
	return &Error{Op: "listen", Path: addr, Err: err}
}

// newTLSError creates an error for unusable certificate or key files.
func newTLSError(err error, certFile string) error {
	return &Error{Op: "tls", Path: certFile, Err: err}
}

func newShutdownError(err error) error {
	return &Error{Op: "shutdown", Err: err}
}

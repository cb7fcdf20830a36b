// Package config provides the server configuration file loader and the
// process options of the HTTP server.
// This file defines the error type returned by the loader.
package config

import (
	"errors"
	"fmt"
)

// Kind classifies a loader failure.
type Kind int

const (
	// KindIO means the configuration file could not be opened or read.
	KindIO Kind = iota + 1
	// KindParse means the file content is malformed, misses a required field
	// or holds a value of the wrong type.
	KindParse
	// KindConvert means a section was parsed but could not be turned into
	// its typed form.
	KindConvert
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "read"
	case KindParse:
		return "parse"
	case KindConvert:
		return "convert"
	default:
		return "load"
	}
}

// Sentinel errors matching any *Error of the same kind through errors.Is.
var (
	ErrIO      = errors.New("config read failed")
	ErrParse   = errors.New("config parse failed")
	ErrConvert = errors.New("config convert failed")
)

// Error represents a failure while loading the configuration.
// It keeps the kind of failure, the file involved (if any) and the
// underlying cause so callers can use errors.Is and errors.As.
type Error struct {
	Kind Kind   // What step failed
	Path string // Configuration file path, empty when parsing raw text
	Err  error  // The underlying error that caused the failure
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config %s failed for %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s failed: %v", e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the same kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrParse:
		return e.Kind == KindParse
	case ErrConvert:
		return e.Kind == KindConvert
	}
	return false
}

func newIOError(err error, path string) error {
	return &Error{Kind: KindIO, Path: path, Err: err}
}

func newParseError(err error) error {
	return &Error{Kind: KindParse, Err: err}
}

func newConvertError(err error) error {
	return &Error{Kind: KindConvert, Err: err}
}

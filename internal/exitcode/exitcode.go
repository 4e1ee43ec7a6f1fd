// Package exitcode defines the process exit codes of sdflash and an error
// type that carries one. main maps the error returned by the command tree
// onto the process exit status.
package exitcode

import (
	"errors"
	"fmt"
)

const (
	Success      = 0
	Failure      = 1
	MountFailure = 2
	MissingTool  = 3
)

// Error wraps an underlying error together with the exit code the process
// should terminate with.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Errorf is fmt.Errorf with an exit code attached.
func Errorf(code int, format string, a ...any) error {
	return &Error{Code: code, Err: fmt.Errorf(format, a...)}
}

// From extracts the exit code from err: nil means success, an *Error
// carries its own code, anything else is a generic failure.
func From(err error) int {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Failure
}

package build

import (
	"errors"

	"github.com/goplus/pyport/internal/interp"
	"github.com/goplus/pyport/internal/modules"
)

var (
	// ErrModuleBuild marks a fatal optional-module failure.
	ErrModuleBuild = modules.ErrModuleBuild
	// ErrInterpreterBuild marks a failed CPython build.
	ErrInterpreterBuild = interp.ErrInterpreterBuild
	// ErrLocked is returned when another run holds the work directory.
	ErrLocked = errors.New("work directory is locked by another pyport run")
)

// Error records the step of a run that failed.
type Error struct {
	Op     string // "resolve", "fetch", "interpreter", "finalize", ...
	Module string // set for module failures
	Err    error
}

func (e *Error) Error() string {
	var be *modules.BuildError
	if e.Module != "" && !errors.As(e.Err, &be) {
		return e.Op + " " + e.Module + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func opError(op string, err error) error {
	e := &Error{Op: op, Err: err}
	var be *modules.BuildError
	if errors.As(err, &be) {
		e.Module = be.Module
	}
	return e
}

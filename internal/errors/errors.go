// Package errors provides small wrapping helpers shared across the shell's
// packages so call sites don't juggle both stdlib errors and pkg/errors.
package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Wrap returns a new error wrapping the passed error. If the passed error is
// nil, nil is returned.
func Wrap(err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w", err)
}

// WithStack annotates err with a stack trace at the point WithStack was
// called. If err is nil, WithStack returns nil. Reserved for syscall
// boundaries the shell cannot retry (fork, exec, wait).
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target and, if one is
// found, sets target to that error value and returns true.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// New returns an error with the supplied message.
func New(msg string) error {
	return stderrors.New(msg)
}

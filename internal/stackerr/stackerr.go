// Package stackerr wraps errors with a message and a captured stack trace
// while keeping every cause in the chain printable.
package stackerr

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Separator joins the rendered errors of a chain in FullStack.
const Separator = "\ncaused by:\n"

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Error is a message plus the causes that led to it.
type Error struct {
	message string
	errs    []error
	stack   errors.StackTrace
}

// Wrap returns an error whose message is "message: cause" when cause is non-nil.
// When cause is itself an *Error its causes are flattened into the new chain.
func Wrap(message string, cause error) *Error {
	var errs []error
	if cause != nil {
		errs = append(errs, cause)
		if stacked, ok := cause.(*Error); ok {
			errs = append(errs, stacked.errs...)
		}
	}
	full := message
	if len(errs) > 0 {
		full = message + ": " + errs[0].Error()
	}
	return &Error{
		message: full,
		errs:    errs,
		stack:   callers(),
	}
}

// New returns an *Error with no cause.
func New(message string) *Error {
	return &Error{message: message, stack: callers()}
}

func callers() errors.StackTrace {
	st := errors.New("").(stackTracer).StackTrace()
	// Drop callers() and Wrap/New.
	if len(st) > 2 {
		return st[2:]
	}
	return st
}

func (e *Error) Error() string {
	return e.message
}

// Unwrap returns the direct cause, if any.
func (e *Error) Unwrap() error {
	if len(e.errs) == 0 {
		return nil
	}
	return e.errs[0]
}

// Causes returns the chain of causes, nearest first.
func (e *Error) Causes() []error {
	out := make([]error, len(e.errs))
	copy(out, e.errs)
	return out
}

// StackTrace exposes the captured stack in the github.com/pkg/errors format.
func (e *Error) StackTrace() errors.StackTrace {
	return e.stack
}

// Format renders the message for %s and %v, and the whole chain with stack
// traces for %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			io.WriteString(s, e.FullStack())
			return
		}
		fallthrough
	case 's':
		io.WriteString(s, e.message)
	case 'q':
		fmt.Fprintf(s, "%q", e.message)
	}
}

// FullStack renders the error and each of its causes with their stack traces.
func (e *Error) FullStack() string {
	parts := make([]string, 0, len(e.errs)+1)
	parts = append(parts, e.message+fmt.Sprintf("%+v", e.stack))
	for _, err := range e.errs {
		parts = append(parts, render(err))
	}
	return strings.Join(parts, Separator)
}

func render(err error) string {
	if err == nil {
		return "Null or undefined error"
	}
	if stacked, ok := err.(*Error); ok {
		return stacked.message + fmt.Sprintf("%+v", stacked.stack)
	}
	if st, ok := err.(stackTracer); ok {
		return err.Error() + fmt.Sprintf("%+v", st.StackTrace())
	}
	return err.Error() + "\nNo stack trace"
}

// FullStack renders any error the way (*Error).FullStack does.
func FullStack(err error) string {
	if err == nil {
		return ""
	}
	if stacked, ok := err.(*Error); ok {
		return stacked.FullStack()
	}
	return render(err)
}

package treadwell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kixxauth/treadwell/internal/stackerr"
)

var (
	ErrInvalidTaskName     = errors.New("a task name must be a non empty string")
	ErrInvalidDependencies = errors.New("task dependencies must be a series, parallel set, or name")
	ErrInvalidTaskFunction = errors.New("a task function must be a function")
	ErrInvalidRunKey       = errors.New("run() task key must be a non empty string")
	ErrUnknownTask         = errors.New("task does not exist")
	ErrMissingDependency   = errors.New("dependency has not been defined")
	ErrCyclicDependency    = errors.New("cyclic dependency detected")
	ErrNoFuture            = errors.New("task did not return a future instance")
	ErrSynchronous         = errors.New("synchronous task error")
	ErrAsynchronous        = errors.New("asynchronous task error")
)

// TaskError is returned when a task body fails. Kind is ErrSynchronous or
// ErrAsynchronous; the wrapped chain keeps the original cause.
type TaskError struct {
	Task string
	Kind error
	err  *stackerr.Error
}

func newTaskError(kind error, task string, cause error) *TaskError {
	var label string
	if kind == ErrAsynchronous {
		label = fmt.Sprintf("asynchronous error in task %q", task)
	} else {
		label = fmt.Sprintf("synchronous error in task %q", task)
	}
	return &TaskError{Task: task, Kind: kind, err: stackerr.Wrap(label, cause)}
}

func (e *TaskError) Error() string {
	return e.err.Error()
}

// Unwrap exposes both the kind sentinel and the original cause to errors.Is.
func (e *TaskError) Unwrap() []error {
	return []error{e.Kind, e.err}
}

// Causes returns the cause chain, nearest first.
func (e *TaskError) Causes() []error {
	return e.err.Causes()
}

// FullStack renders the error and its causes with stack traces.
func (e *TaskError) FullStack() string {
	return e.err.FullStack()
}

// Format delegates to the wrapped chain so %+v prints every stack.
func (e *TaskError) Format(s fmt.State, verb rune) {
	e.err.Format(s, verb)
}

// kindError carries a formatted message while matching its sentinel with errors.Is.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func missingDependencyError(dep, task string) error {
	return &kindError{msg: fmt.Sprintf("dependency %q for task %q has not been defined", dep, task), kind: ErrMissingDependency}
}

func unknownTaskError(name string) error {
	return &kindError{msg: fmt.Sprintf("run() task %q does not exist", name), kind: ErrUnknownTask}
}

func noFutureError(task string) error {
	return &kindError{msg: fmt.Sprintf("task %q did not return a future instance", task), kind: ErrNoFuture}
}

func cycleError(path []string) error {
	return &kindError{msg: fmt.Sprintf("cyclic dependency detected: %s", strings.Join(path, " -> ")), kind: ErrCyclicDependency}
}

// FullStack renders err with every cause and stack trace it carries.
func FullStack(err error) string {
	var te *TaskError
	if errors.As(err, &te) {
		if te == err {
			return te.FullStack()
		}
		return err.Error() + stackerr.Separator + te.FullStack()
	}
	return stackerr.FullStack(err)
}

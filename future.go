package treadwell

import (
	"context"
	"fmt"
	"sync"
)

// Future is a value that becomes available later. It settles exactly once,
// either resolved with a value or rejected with an error.
type Future struct {
	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

// NewFuture returns a pending future and the functions that settle it.
// Only the first settle call has any effect.
func NewFuture() (*Future, func(any), func(error)) {
	f := &Future{done: make(chan struct{})}
	return f, f.resolve, f.reject
}

// Go runs fn on its own goroutine and settles the returned future with its
// result. A panic in fn rejects the future.
func Go(fn func() (any, error)) *Future {
	f, resolve, reject := NewFuture()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				reject(panicError(r))
			}
		}()
		value, err := fn()
		if err != nil {
			reject(err)
			return
		}
		resolve(value)
	}()
	return f
}

// Resolved returns a future already settled with value.
func Resolved(value any) *Future {
	f, resolve, _ := NewFuture()
	resolve(value)
	return f
}

// Rejected returns a future already settled with err.
func Rejected(err error) *Future {
	f, _, reject := NewFuture()
	reject(err)
	return f
}

func (f *Future) resolve(value any) {
	f.once.Do(func() {
		f.value = value
		close(f.done)
	})
}

func (f *Future) reject(err error) {
	if err == nil {
		err = fmt.Errorf("future rejected without an error")
	}
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the future settles.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future settles or ctx is done.
func (f *Future) Await(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Outcome is the single cached result of a Runner's run.
type Outcome struct {
	future *Future
	runID  string
	task   string
}

// RunID identifies the run that produced this outcome.
func (o *Outcome) RunID() string {
	return o.runID
}

// Task is the root task name the run was started with.
func (o *Outcome) Task() string {
	return o.task
}

// Done is closed once the run finishes.
func (o *Outcome) Done() <-chan struct{} {
	return o.future.Done()
}

// Wait blocks until the run finishes or ctx is done, and returns the final
// result container or the error that failed the run.
func (o *Outcome) Wait(ctx context.Context) (*Args, error) {
	value, err := o.future.Await(ctx)
	if err != nil {
		return nil, err
	}
	args, _ := value.(*Args)
	return args, nil
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}

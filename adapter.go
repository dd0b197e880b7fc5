package treadwell

import (
	"context"
	"sync"
)

// SyncFunc is a task body that returns its result directly.
type SyncFunc func(ctx context.Context, args *Args) (any, error)

// Callback reports the completion of a callback-style task body. A non-nil
// err fails the task; otherwise result is the task's result.
type Callback func(err error, result any)

// CallbackFunc is a task body that reports completion through done.
type CallbackFunc func(ctx context.Context, args *Args, done Callback)

// FutureFunc is a task body that returns a Future for its result.
type FutureFunc func(ctx context.Context, args *Args) *Future

// bodyFunc is the one contract every body shape is normalized into.
type bodyFunc func(ctx context.Context, args *Args) (any, error)

// Identity is the body of tasks registered without one: it hands its input
// back unchanged.
func Identity(_ context.Context, args *Args) (any, error) {
	return args, nil
}

// adapt inspects body once and returns the closure that runs it. The error
// is ErrInvalidTaskFunction when body has no recognized shape.
func adapt(name string, body any) (bodyFunc, error) {
	var run bodyFunc
	switch fn := body.(type) {
	case SyncFunc:
		run = adaptSync(name, fn)
	case func(context.Context, *Args) (any, error):
		run = adaptSync(name, fn)
	case func(*Args) (any, error):
		if fn != nil {
			run = adaptSync(name, func(_ context.Context, args *Args) (any, error) { return fn(args) })
		}
	case func(*Args) any:
		if fn != nil {
			run = adaptSync(name, func(_ context.Context, args *Args) (any, error) { return fn(args), nil })
		}
	case func() error:
		if fn != nil {
			run = adaptSync(name, func(_ context.Context, args *Args) (any, error) { return args, fn() })
		}
	case CallbackFunc:
		run = adaptCallback(name, fn)
	case func(context.Context, *Args, Callback):
		run = adaptCallback(name, fn)
	case func(Callback):
		if fn != nil {
			run = adaptCallback(name, func(_ context.Context, _ *Args, done Callback) { fn(done) })
		}
	case FutureFunc:
		run = adaptFuture(name, fn)
	case func(context.Context, *Args) *Future:
		run = adaptFuture(name, fn)
	case func(*Args) *Future:
		if fn != nil {
			run = adaptFuture(name, func(_ context.Context, args *Args) *Future { return fn(args) })
		}
	}
	if run == nil {
		return nil, ErrInvalidTaskFunction
	}
	return run, nil
}

func adaptSync(name string, fn SyncFunc) bodyFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args *Args) (result any, err error) {
		defer func() {
			if r := recover(); r != nil {
				result, err = nil, newTaskError(ErrSynchronous, name, panicError(r))
			}
		}()
		result, err = fn(ctx, args)
		if err != nil {
			return nil, newTaskError(ErrSynchronous, name, err)
		}
		return result, nil
	}
}

func adaptCallback(name string, fn CallbackFunc) bodyFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args *Args) (any, error) {
		type completion struct {
			result any
			err    error
		}
		ch := make(chan completion, 1)
		var once sync.Once
		done := func(err error, result any) {
			once.Do(func() { ch <- completion{result: result, err: err} })
		}
		if err := invokeCallback(ctx, args, fn, done); err != nil {
			return nil, newTaskError(ErrSynchronous, name, err)
		}
		select {
		case c := <-ch:
			if c.err != nil {
				return nil, newTaskError(ErrAsynchronous, name, c.err)
			}
			return c.result, nil
		case <-ctx.Done():
			return nil, newTaskError(ErrAsynchronous, name, ctx.Err())
		}
	}
}

func invokeCallback(ctx context.Context, args *Args, fn CallbackFunc, done Callback) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
		}
	}()
	fn(ctx, args, done)
	return nil
}

func adaptFuture(name string, fn FutureFunc) bodyFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, args *Args) (any, error) {
		future, err := invokeFuture(ctx, args, fn)
		if err != nil {
			return nil, newTaskError(ErrSynchronous, name, err)
		}
		if future == nil || future.done == nil {
			return nil, noFutureError(name)
		}
		value, err := future.Await(ctx)
		if err != nil {
			return nil, newTaskError(ErrAsynchronous, name, err)
		}
		return value, nil
	}
}

func invokeFuture(ctx context.Context, args *Args, fn FutureFunc) (future *Future, err error) {
	defer func() {
		if r := recover(); r != nil {
			future, err = nil, panicError(r)
		}
	}()
	return fn(ctx, args), nil
}

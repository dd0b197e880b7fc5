package treadwell

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// step is one link of a composed dependency chain. It receives the
// accumulated container and returns the container the next link sees.
type step func(ctx context.Context, exec *execution, args *Args) (*Args, error)

// execution is the state of one run: a fixed view of the registry and the
// memo table that makes every task execute at most once.
type execution struct {
	runID  string
	tasks  map[string]*task
	bus    *Bus
	logger *Logger

	mu   sync.Mutex
	memo map[string]*call
}

// call records the first execution of a task within a run. out holds only
// the entries the task and its dependency chain added or changed.
type call struct {
	done chan struct{}
	out  *Args
	err  error
}

// group is one running parallel set. After its first member fails the set is
// abandoned: the other members run to completion, but what they produce is
// discarded.
type group struct {
	parent    *group
	abandoned atomic.Bool
}

type groupKey struct{}

func groupFrom(ctx context.Context) *group {
	g, _ := ctx.Value(groupKey{}).(*group)
	return g
}

func (g *group) discarded() bool {
	for ; g != nil; g = g.parent {
		if g.abandoned.Load() {
			return true
		}
	}
	return false
}

func newExecution(runID string, tasks map[string]*task, bus *Bus, logger *Logger) *execution {
	return &execution{
		runID:  runID,
		tasks:  tasks,
		bus:    bus,
		logger: logger,
		memo:   map[string]*call{},
	}
}

func (e *execution) publish(ctx context.Context, t EventType, key string, err error) {
	event := Event{Type: t, Key: key, RunID: e.runID, Time: time.Now(), Err: err}
	if t == EventError {
		event.Discarded = groupFrom(ctx).discarded()
	}
	if e.logger != nil {
		LogListener(e.logger)(event)
	}
	if e.bus != nil {
		e.bus.Publish(event)
	}
}

// invoke runs the named task against args. owner is the task that declared
// the dependency, empty for the root.
func (e *execution) invoke(ctx context.Context, name, owner string, args *Args) (*Args, error) {
	t, ok := e.tasks[name]
	if !ok {
		return nil, missingDependencyError(name, owner)
	}
	e.mu.Lock()
	if c, seen := e.memo[name]; seen {
		e.mu.Unlock()
		select {
		case <-c.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if c.err != nil {
			return nil, c.err
		}
		return args.Merge(c.out), nil
	}
	c := &call{done: make(chan struct{})}
	e.memo[name] = c
	e.mu.Unlock()

	before := args.Clone()
	out, err := e.execute(ctx, t, args)
	if err == nil {
		c.out = contribution(before, out)
	}
	c.err = err
	close(c.done)
	return out, err
}

func (e *execution) execute(ctx context.Context, t *task, args *Args) (*Args, error) {
	e.publish(ctx, EventStart, t.name, nil)
	out, err := t.chain(ctx, e, args)
	if err != nil {
		e.publish(ctx, EventError, t.name, err)
		return nil, err
	}
	result, err := t.body(ctx, out)
	if err != nil {
		e.publish(ctx, EventError, t.name, err)
		return nil, err
	}
	out = record(t.name, out, result)
	e.publish(ctx, EventEnd, t.name, nil)
	return out, nil
}

// contribution returns the entries of after that are missing from before or
// hold a different value there.
func contribution(before, after *Args) *Args {
	keys, values := after.snapshot()
	_, prior := before.snapshot()
	out := NewArgs()
	for _, key := range keys {
		if old, ok := prior[key]; ok && reflect.DeepEqual(old, values[key]) {
			continue
		}
		out.Set(key, values[key])
	}
	return out
}

// record stores a body result. A returned container replaces the one passed
// in; anything else is written under the task name.
func record(name string, args *Args, result any) *Args {
	if augmented, ok := result.(*Args); ok {
		if augmented == nil {
			return args
		}
		return augmented
	}
	return args.Set(name, result)
}

// compose turns a dependency declaration into a chain. Names are resolved
// when the chain runs, against the run's registry view.
func compose(dep Dependency, owner string) step {
	switch value := dep.(type) {
	case Name:
		name := string(value)
		return func(ctx context.Context, exec *execution, args *Args) (*Args, error) {
			return exec.invoke(ctx, name, owner, args)
		}
	case Series:
		return composeSeries(value, owner)
	case Parallel:
		return composeParallel(value, owner)
	}
	return identityStep
}

func identityStep(_ context.Context, _ *execution, args *Args) (*Args, error) {
	return args, nil
}

func composeSeries(members Series, owner string) step {
	if len(members) == 0 {
		return identityStep
	}
	steps := make([]step, len(members))
	for i, member := range members {
		steps[i] = compose(member, owner)
	}
	return func(ctx context.Context, exec *execution, args *Args) (*Args, error) {
		current := args
		for _, s := range steps {
			next, err := s(ctx, exec, current)
			if err != nil {
				return nil, err
			}
			current = next
		}
		return current, nil
	}
}

func composeParallel(members Parallel, owner string) step {
	if len(members) == 0 {
		return identityStep
	}
	steps := make([]step, len(members))
	for i, member := range members {
		steps[i] = compose(member, owner)
	}
	return func(ctx context.Context, exec *execution, args *Args) (*Args, error) {
		inputs := make([]*Args, len(steps))
		for i := range steps {
			inputs[i] = args.Clone()
		}
		results := make([]*Args, len(steps))
		set := &group{parent: groupFrom(ctx)}
		memberCtx := context.WithValue(ctx, groupKey{}, set)
		failed := make(chan error, 1)
		var g errgroup.Group
		for i, s := range steps {
			i, s := i, s
			g.Go(func() error {
				out, err := s(memberCtx, exec, inputs[i])
				if err != nil {
					if set.abandoned.CompareAndSwap(false, true) {
						failed <- err
					}
					return err
				}
				results[i] = out
				return nil
			})
		}
		finished := make(chan error, 1)
		go func() { finished <- g.Wait() }()

		// Members still in flight after the first failure keep running with
		// the caller's context; their results are never read.
		select {
		case err := <-failed:
			return nil, err
		case err := <-finished:
			if err != nil {
				return nil, err
			}
		}
		merged := results[0]
		for _, result := range results[1:] {
			merged = merged.Merge(result)
		}
		return merged, nil
	}
}

type mark int

const (
	unvisited mark = iota
	visiting
	visited
)

// validate walks every task reachable from root and fails on the first
// undefined dependency or cycle, in declaration order.
func (e *execution) validate(root string) error {
	marks := make(map[string]mark, len(e.tasks))
	var path []string
	var visit func(name, owner string) error
	visit = func(name, owner string) error {
		t, ok := e.tasks[name]
		if !ok {
			return missingDependencyError(name, owner)
		}
		switch marks[name] {
		case visited:
			return nil
		case visiting:
			for i, seen := range path {
				if seen == name {
					return cycleError(append(append([]string{}, path[i:]...), name))
				}
			}
			return cycleError([]string{name, name})
		}
		marks[name] = visiting
		path = append(path, name)
		for _, dep := range dependencyNames(t.deps) {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		marks[name] = visited
		return nil
	}
	return visit(root, "")
}

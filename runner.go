package treadwell

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kixxauth/treadwell/internal/logging"
)

// Runner owns a task registry and drives a single run over it.
type Runner struct {
	opts     Options
	registry *registry
	bus      *Bus

	mu      sync.Mutex
	outcome *Outcome
	logger  *Logger
}

// Create returns a Runner with the given base options.
func Create(opts ...Option) *Runner {
	return &Runner{
		opts:     buildOptions(opts),
		registry: newRegistry(),
		bus:      NewBus(),
	}
}

// Register compiles def and adds it to the registry, replacing any task of
// the same name.
func (r *Runner) Register(def Definition) error {
	return r.register(def, false)
}

// register compiles def. With explicitBody set a nil body is rejected instead
// of standing for the identity body.
func (r *Runner) register(def Definition, explicitBody bool) error {
	name := strings.TrimSpace(def.Name)
	if name == "" {
		return ErrInvalidTaskName
	}
	deps, err := normalizeDependencies(def.Dependencies)
	if err != nil {
		return err
	}
	body := def.Body
	if body == nil {
		if explicitBody {
			return ErrInvalidTaskFunction
		}
		body = SyncFunc(Identity)
	}
	run, err := adapt(name, body)
	if err != nil {
		return err
	}
	r.registry.put(&task{
		name:  name,
		deps:  deps,
		body:  run,
		chain: compose(deps, name),
	})
	return nil
}

// MustRegister is Register that panics on error.
func (r *Runner) MustRegister(def Definition) *Runner {
	if err := r.Register(def); err != nil {
		panic(err)
	}
	return r
}

// Task registers a task and returns r for chaining. It accepts
//
//	Task(name)
//	Task(name, body)
//	Task(name, dependencies)
//	Task(name, dependencies, body)
//
// A single extra argument is a body when it is a function and dependencies
// otherwise. A body passed next to dependencies must be a function; nil is
// rejected. Task panics with the registration error when the call is
// invalid.
func (r *Runner) Task(name string, rest ...any) *Runner {
	def := Definition{Name: name}
	explicitBody := false
	switch len(rest) {
	case 0:
	case 1:
		if isFunc(rest[0]) {
			def.Body = rest[0]
		} else {
			def.Dependencies = rest[0]
		}
	case 2:
		def.Dependencies, def.Body = rest[0], rest[1]
		explicitBody = true
	default:
		panic(fmt.Errorf("%w: task %q takes at most dependencies and a body", ErrInvalidTaskFunction, name))
	}
	if err := r.register(def, explicitBody); err != nil {
		panic(err)
	}
	return r
}

func isFunc(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// TaskSpec is one entry of a bulk Define call.
type TaskSpec struct {
	Dependencies any
	// Parallelize runs a plain list of dependencies concurrently instead of
	// in order.
	Parallelize bool
	Body        any
}

// Define registers every entry of specs in name order. It stops at the first
// invalid entry.
func (r *Runner) Define(specs map[string]TaskSpec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := specs[name]
		deps, err := normalizeDependencies(spec.Dependencies)
		if err != nil {
			return fmt.Errorf("define %q: %w", name, err)
		}
		if series, ok := deps.(Series); ok && spec.Parallelize {
			deps = Parallel(series)
		}
		if err := r.Register(Definition{Name: name, Dependencies: deps, Body: spec.Body}); err != nil {
			return fmt.Errorf("define %q: %w", name, err)
		}
	}
	return nil
}

// Tasks lists the registered task names in sorted order.
func (r *Runner) Tasks() []string {
	return r.registry.names()
}

// Dependencies returns the normalized dependency declaration of name.
func (r *Runner) Dependencies(name string) (Dependency, bool) {
	t, ok := r.registry.get(name)
	if !ok {
		return nil, false
	}
	return t.deps, true
}

// Events returns the bus task events are published on. Subscribe before
// calling Run to see every event.
func (r *Runner) Events() *Bus {
	return r.bus
}

// Logger returns the logger of the run, or a no-op logger before Run.
func (r *Runner) Logger() *Logger {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logger == nil {
		return logging.Nop()
	}
	return r.logger
}

// Outcome returns the cached run outcome, or nil before Run.
func (r *Runner) Outcome() *Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// Run starts the root task and returns its outcome. A Runner runs once: the
// first successful call caches the outcome and every later call returns it
// unchanged, whatever its arguments. Errors in root itself are returned
// directly and nothing is cached.
func (r *Runner) Run(ctx context.Context, root string, opts ...Option) (*Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome != nil {
		return r.outcome, nil
	}
	name := strings.TrimSpace(root)
	if name == "" {
		return nil, ErrInvalidRunKey
	}
	tasks := r.registry.snapshot()
	if _, ok := tasks[name]; !ok {
		return nil, unknownTaskError(name)
	}
	options, err := layerOptions(r.opts, buildOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("run options: %w", err)
	}
	logger, err := logging.New(options.Logging)
	if err != nil {
		return nil, fmt.Errorf("run logger: %w", err)
	}

	runID := uuid.NewString()
	exec := newExecution(runID, tasks, r.bus, logger)
	args := ArgsFrom(options.Values)
	args.Set(LoggerKey, logger)

	logger.Debug("run start", zap.String("task", name), zap.String("run", runID))
	future := Go(func() (any, error) {
		defer logger.Close()
		if err := exec.validate(name); err != nil {
			logger.Error("run rejected", zap.String("task", name), zap.Error(err))
			return nil, err
		}
		out, err := exec.invoke(ctx, name, "", args)
		if err != nil {
			return nil, err
		}
		logger.Debug("run complete", zap.String("task", name), zap.String("run", runID))
		return out, nil
	})

	r.logger = logger
	r.outcome = &Outcome{future: future, runID: runID, task: name}
	return r.outcome, nil
}

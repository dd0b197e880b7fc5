package treadwell

import (
	"sort"
	"sync"
)

// Definition is the canonical description of a task.
type Definition struct {
	Name string
	// Dependencies is a Dependency, a name, a []string series, a Set, or any
	// nesting accepted by Runner.Task. nil means none.
	Dependencies any
	// Body is one of the recognized body shapes. nil means Identity.
	Body any
}

// task is a registered, compiled definition. It is never mutated after
// registration.
type task struct {
	name  string
	deps  Dependency
	body  bodyFunc
	chain step
}

// registry maps task names to compiled tasks. Re-registering a name replaces
// the earlier task.
type registry struct {
	mu    sync.RWMutex
	tasks map[string]*task
}

func newRegistry() *registry {
	return &registry{tasks: map[string]*task{}}
}

func (r *registry) put(t *task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[t.name] = t
}

func (r *registry) get(name string) (*task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// snapshot copies the table so a run sees a fixed set of tasks.
func (r *registry) snapshot() map[string]*task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*task, len(r.tasks))
	for name, t := range r.tasks {
		out[name] = t
	}
	return out
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

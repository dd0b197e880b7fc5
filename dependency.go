package treadwell

import (
	"fmt"
	"sort"
	"strings"
)

// Dependency declares what must run before a task: a Name, a Series or a
// Parallel group. Groups may nest.
type Dependency interface {
	dependency()
	String() string
}

// Name refers to a registered task.
type Name string

// Series runs its members one after another, each receiving the previous
// member's output.
type Series []Dependency

// Parallel runs its members concurrently against the same input and merges
// their outputs.
type Parallel []Dependency

func (Name) dependency()     {}
func (Series) dependency()   {}
func (Parallel) dependency() {}

func (n Name) String() string { return string(n) }

func (s Series) String() string { return "[" + joinDeps(s) + "]" }

func (p Parallel) String() string { return "{" + joinDeps(p) + "}" }

func joinDeps(deps []Dependency) string {
	parts := make([]string, len(deps))
	for i, dep := range deps {
		parts[i] = dep.String()
	}
	return strings.Join(parts, ", ")
}

// Serial is shorthand for a Series of task names.
func Serial(names ...string) Series {
	out := make(Series, len(names))
	for i, name := range names {
		out[i] = Name(name)
	}
	return out
}

// Concurrent is shorthand for a Parallel group of task names.
func Concurrent(names ...string) Parallel {
	out := make(Parallel, len(names))
	for i, name := range names {
		out[i] = Name(name)
	}
	return out
}

// Set is an unordered group of names, run like Parallel.
type Set map[string]struct{}

// NewSet builds a Set from names.
func NewSet(names ...string) Set {
	set := make(Set, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// normalizeDependencies converts the accepted declaration forms into a
// Dependency tree and validates every element. nil means no dependencies.
func normalizeDependencies(v any) (Dependency, error) {
	dep, err := normalizeDependency(v, true)
	if err != nil {
		return nil, err
	}
	if dep == nil {
		return Series{}, nil
	}
	return dep, nil
}

func normalizeDependency(v any, top bool) (Dependency, error) {
	switch value := v.(type) {
	case nil:
		if top {
			return nil, nil
		}
		return nil, invalidDependencies("nil dependency")
	case string:
		return normalizeName(value)
	case Name:
		return normalizeName(string(value))
	case []string:
		out := make(Series, 0, len(value))
		for _, name := range value {
			dep, err := normalizeName(name)
			if err != nil {
				return nil, err
			}
			out = append(out, dep)
		}
		return out, nil
	case Series:
		return normalizeGroup([]Dependency(value), false)
	case []Dependency:
		return normalizeGroup(value, false)
	case Parallel:
		return normalizeGroup([]Dependency(value), true)
	case Set:
		return setToParallel(value)
	case map[string]struct{}:
		return setToParallel(Set(value))
	case map[string]bool:
		set := make(Set, len(value))
		for name, member := range value {
			if member {
				set[name] = struct{}{}
			}
		}
		return setToParallel(set)
	case []any:
		out := make(Series, 0, len(value))
		for _, item := range value {
			dep, err := normalizeDependency(item, false)
			if err != nil {
				return nil, err
			}
			out = append(out, dep)
		}
		return out, nil
	}
	return nil, invalidDependencies(fmt.Sprintf("unsupported type %T", v))
}

func normalizeName(name string) (Dependency, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, invalidDependencies("empty task name")
	}
	return Name(trimmed), nil
}

func normalizeGroup(members []Dependency, parallel bool) (Dependency, error) {
	out := make([]Dependency, 0, len(members))
	seen := map[Name]struct{}{}
	for _, member := range members {
		dep, err := normalizeDependency(member, false)
		if err != nil {
			return nil, err
		}
		if name, ok := dep.(Name); ok && parallel {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
		}
		out = append(out, dep)
	}
	if parallel {
		return Parallel(out), nil
	}
	return Series(out), nil
}

func setToParallel(set Set) (Dependency, error) {
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(Parallel, 0, len(names))
	for _, name := range names {
		dep, err := normalizeName(name)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

func invalidDependencies(detail string) error {
	return &kindError{msg: ErrInvalidDependencies.Error() + ": " + detail, kind: ErrInvalidDependencies}
}

// dependencyNames lists every task name referenced by dep, depth first.
func dependencyNames(dep Dependency) []string {
	var names []string
	var walk func(Dependency)
	walk = func(d Dependency) {
		switch value := d.(type) {
		case Name:
			names = append(names, string(value))
		case Series:
			for _, member := range value {
				walk(member)
			}
		case Parallel:
			for _, member := range value {
				walk(member)
			}
		}
	}
	walk(dep)
	return names
}

package plugins

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kixxauth/treadwell"
)

// TaskDefinition describes a task loaded from a definition file.
//
// A definition declares at most one body: a shell command whose trimmed
// stdout becomes the task result, or a Go script interpreted at load time.
// With neither the task passes its input through unchanged.
type TaskDefinition struct {
	Name         string            `json:"name" yaml:"name"`
	Description  string            `json:"description,omitempty" yaml:"description,omitempty"`
	Dependencies DependencySpec    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Command      string            `json:"command,omitempty" yaml:"command,omitempty"`
	Dir          string            `json:"dir,omitempty" yaml:"dir,omitempty"`
	Env          map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Script       string            `json:"script,omitempty" yaml:"script,omitempty"`
}

// Normalized returns a trimmed copy of the definition.
func (def TaskDefinition) Normalized() TaskDefinition {
	clone := TaskDefinition{
		Name:         strings.TrimSpace(def.Name),
		Description:  strings.TrimSpace(def.Description),
		Dependencies: def.Dependencies,
		Command:      strings.TrimSpace(def.Command),
		Dir:          strings.TrimSpace(def.Dir),
		Script:       def.Script,
	}
	if strings.TrimSpace(clone.Script) == "" {
		clone.Script = ""
	}
	if len(def.Env) > 0 {
		clone.Env = make(map[string]string, len(def.Env))
		for key, value := range def.Env {
			trimmed := strings.TrimSpace(key)
			if trimmed == "" {
				continue
			}
			clone.Env[trimmed] = value
		}
	}
	return clone
}

// Validate ensures the definition can be registered.
func (def TaskDefinition) Validate() error {
	normalized := def.Normalized()
	if normalized.Name == "" {
		return fmt.Errorf("plugin: task name is required")
	}
	if normalized.Command != "" && normalized.Script != "" {
		return fmt.Errorf("plugin: task %s: command and script are mutually exclusive", normalized.Name)
	}
	if normalized.Dir != "" && normalized.Command == "" {
		return fmt.Errorf("plugin: task %s: dir only applies to command tasks", normalized.Name)
	}
	for _, dep := range normalized.Dependencies.Names() {
		if strings.TrimSpace(dep) == "" {
			return fmt.Errorf("plugin: task %s: dependency names must be non-empty", normalized.Name)
		}
	}
	return nil
}

// Kind describes the body a definition declares.
func (def TaskDefinition) Kind() string {
	switch {
	case strings.TrimSpace(def.Command) != "":
		return "command"
	case strings.TrimSpace(def.Script) != "":
		return "script"
	}
	return "identity"
}

// DependencySpec is the YAML form of a dependency declaration: a name, a
// list run in order, or a mapping with a single parallel or series key.
type DependencySpec struct {
	Dependency treadwell.Dependency
}

// Names lists every task the spec refers to.
func (s DependencySpec) Names() []string {
	var names []string
	var walk func(treadwell.Dependency)
	walk = func(dep treadwell.Dependency) {
		switch value := dep.(type) {
		case treadwell.Name:
			names = append(names, string(value))
		case treadwell.Series:
			for _, member := range value {
				walk(member)
			}
		case treadwell.Parallel:
			for _, member := range value {
				walk(member)
			}
		}
	}
	walk(s.Dependency)
	return names
}

// IsZero lets omitempty drop an empty spec.
func (s DependencySpec) IsZero() bool {
	switch value := s.Dependency.(type) {
	case nil:
		return true
	case treadwell.Series:
		return len(value) == 0
	}
	return false
}

func (s DependencySpec) String() string {
	if s.Dependency == nil {
		return "[]"
	}
	return s.Dependency.String()
}

// UnmarshalYAML decodes the accepted dependency shapes.
func (s *DependencySpec) UnmarshalYAML(node *yaml.Node) error {
	dep, err := decodeDependency(node)
	if err != nil {
		return err
	}
	s.Dependency = dep
	return nil
}

// MarshalYAML encodes the spec in the form UnmarshalYAML reads.
func (s DependencySpec) MarshalYAML() (any, error) {
	if s.Dependency == nil {
		return []any{}, nil
	}
	return encodeDependency(s.Dependency), nil
}

func decodeDependency(node *yaml.Node) (treadwell.Dependency, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return decodeDependency(node.Alias)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return treadwell.Series{}, nil
		}
		name := strings.TrimSpace(node.Value)
		if name == "" {
			return nil, fmt.Errorf("line %d: empty dependency name", node.Line)
		}
		return treadwell.Name(name), nil
	case yaml.SequenceNode:
		out := make(treadwell.Series, 0, len(node.Content))
		for _, child := range node.Content {
			dep, err := decodeDependency(child)
			if err != nil {
				return nil, err
			}
			out = append(out, dep)
		}
		return out, nil
	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return nil, fmt.Errorf("line %d: dependency group must have exactly one of parallel or series", node.Line)
		}
		key, value := node.Content[0].Value, node.Content[1]
		if value.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("line %d: %s group must be a list", value.Line, key)
		}
		members, err := decodeDependency(value)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "parallel":
			return treadwell.Parallel(members.(treadwell.Series)), nil
		case "series":
			return members, nil
		}
		return nil, fmt.Errorf("line %d: unknown dependency group %q", node.Line, key)
	}
	return nil, fmt.Errorf("line %d: unsupported dependency shape", node.Line)
}

func encodeDependency(dep treadwell.Dependency) any {
	switch value := dep.(type) {
	case treadwell.Name:
		return string(value)
	case treadwell.Series:
		out := make([]any, len(value))
		for i, member := range value {
			out[i] = encodeDependency(member)
		}
		return out
	case treadwell.Parallel:
		out := make([]any, len(value))
		for i, member := range value {
			out[i] = encodeDependency(member)
		}
		return map[string]any{"parallel": out}
	}
	return nil
}

// sortDefinitions orders definitions by source path, then by position.
func sortDefinitions(defs []DefinitionFile) {
	sort.SliceStable(defs, func(i, j int) bool { return defs[i].Path < defs[j].Path })
}

package plugins

import (
	"fmt"

	"github.com/kixxauth/treadwell"
)

// Register compiles definitions into tasks on runner. Task names must be
// unique across all definitions.
func Register(runner *treadwell.Runner, defs ...DefinitionFile) error {
	if runner == nil {
		return nil
	}
	seen := make(map[string]string, len(defs))
	for _, file := range defs {
		def := file.Definition.Normalized()
		if err := def.Validate(); err != nil {
			return fmt.Errorf("plugin: %s: %w", file.Path, err)
		}
		if existing, ok := seen[def.Name]; ok {
			return fmt.Errorf("plugin: duplicate task %s (%s and %s)", def.Name, existing, file.Path)
		}
		seen[def.Name] = file.Path
		body, err := def.Body(file.BaseDir)
		if err != nil {
			return fmt.Errorf("plugin: %s: %w", file.Path, err)
		}
		if err := runner.Register(treadwell.Definition{
			Name:         def.Name,
			Dependencies: def.Dependencies.Dependency,
			Body:         body,
		}); err != nil {
			return fmt.Errorf("plugin: register %s from %s: %w", def.Name, file.Path, err)
		}
	}
	return nil
}

package plugins

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefinitionFile pairs a parsed task definition with its on-disk source.
type DefinitionFile struct {
	Definition TaskDefinition
	// Path identifies the source, with a #n suffix for the nth entry.
	Path string
	// BaseDir is where relative command directories resolve.
	BaseDir string
}

type taskFile struct {
	Tasks []TaskDefinition `yaml:"tasks"`
}

// ParseDefinitionYAML decodes and validates a task file payload.
func ParseDefinitionYAML(data []byte) ([]TaskDefinition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("plugin: definition payload is empty")
	}
	var file taskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("plugin: decode definition: %w", err)
	}
	out := make([]TaskDefinition, 0, len(file.Tasks))
	for idx, def := range file.Tasks {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", idx, err)
		}
		out = append(out, def.Normalized())
	}
	return out, nil
}

// LoadDefinitionFile reads a YAML task file from disk.
func LoadDefinitionFile(path string) ([]DefinitionFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("plugin: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	defs, err := ParseDefinitionYAML(data)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return sourcedDefinitions(path, defs), nil
}

func sourcedDefinitions(path string, defs []TaskDefinition) []DefinitionFile {
	clean := filepath.Clean(path)
	files := make([]DefinitionFile, len(defs))
	for idx, def := range defs {
		files[idx] = DefinitionFile{
			Definition: def,
			Path:       fmt.Sprintf("%s#%d", clean, idx+1),
			BaseDir:    filepath.Dir(clean),
		}
	}
	return files
}

// LoadDefinitionDir loads every *.yaml and *.yml file in dir in name order. A
// missing directory holds no tasks.
func LoadDefinitionDir(dir string) ([]DefinitionFile, error) {
	paths, err := sourceFiles(dir, isYAMLFile)
	if err != nil {
		return nil, err
	}
	var defs []DefinitionFile
	for _, path := range paths {
		loaded, err := LoadDefinitionFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

// sourceFiles lists the regular files in dir whose names match, sorted.
func sourceFiles(dir string, match func(string) bool) ([]string, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("plugin: read %s: %w", trimmed, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !match(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(trimmed, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Sources lists where to load definitions from.
type Sources struct {
	// Files are YAML task files, Go definition scripts or directories of
	// YAML task files.
	Files []string
	// Scripts are directories of Go definition scripts.
	Scripts []string
	// Optional skips files that do not exist instead of failing.
	Optional bool
}

// LoadSources loads every file and script directory in src, in the order
// given.
func LoadSources(src Sources) ([]DefinitionFile, error) {
	var defs []DefinitionFile
	for _, path := range src.Files {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && src.Optional {
				continue
			}
			return nil, fmt.Errorf("plugin: stat %s: %w", path, err)
		}
		var loaded []DefinitionFile
		switch {
		case info.IsDir():
			loaded, err = LoadDefinitionDir(path)
		case isGoScript(info.Name()):
			loaded, err = LoadGoDefinitionFile(path)
		default:
			loaded, err = LoadDefinitionFile(path)
		}
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	for _, dir := range src.Scripts {
		loaded, err := LoadGoDefinitionDir(dir)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	return defs, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// Package config loads the treadwell.yaml project file. A project without one
// runs on defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kixxauth/treadwell/internal/logging"
)

// FileName is the project configuration file looked up in the project dir.
const FileName = "treadwell.yaml"

const defaultTaskFile = "tasks.yaml"

const defaultHistoryFile = ".treadwell/history.log"

// HistoryDisabled turns off the run history when set as run.history.
const HistoryDisabled = "none"

const defaultProjectConfigYAML = `# treadwell project configuration
version: 1

logging:
  name: treadwell
  # debug, info, warn or error
  level: error
  # console or json
  format: console

tasks:
  # YAML task definition files, relative to this file.
  files:
    - tasks.yaml
  # Directories of Go task definition scripts.
  # scripts:
  #   - scripts

run:
  # Task run when none is named on the command line.
  # default: build
  # Task event history, relative to this file. "none" disables it.
  history: .treadwell/history.log
`

// TaskSources lists where task definitions are loaded from.
type TaskSources struct {
	Files   []string `yaml:"files,omitempty"`
	Scripts []string `yaml:"scripts,omitempty"`
}

// RunConfig captures run preferences.
type RunConfig struct {
	Default string `yaml:"default,omitempty"`
	History string `yaml:"history,omitempty"`
}

// ProjectConfig models treadwell.yaml.
type ProjectConfig struct {
	Version int            `yaml:"version"`
	Logging logging.Config `yaml:"logging"`
	Tasks   TaskSources    `yaml:"tasks"`
	Run     RunConfig      `yaml:"run"`
}

// Config is a loaded project configuration.
type Config struct {
	// ProjectDir holds treadwell.yaml; relative paths resolve against it.
	ProjectDir string
	Project    ProjectConfig
	// Found reports whether treadwell.yaml existed when loaded.
	Found bool
}

// Load reads dir/treadwell.yaml. A missing file yields the defaults.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", projectDir, err)
	}
	cfg := &Config{ProjectDir: abs, Project: defaultProjectConfig()}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Init writes a default treadwell.yaml into dir unless one exists, and
// returns its path. created is false when the file was already there.
func Init(projectDir string) (path string, created bool, err error) {
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return "", false, fmt.Errorf("config: ensure project dir: %w", err)
	}
	path = filepath.Join(projectDir, FileName)
	created, err = ensureProjectConfig(path)
	if err != nil {
		return "", false, fmt.Errorf("config: init %s: %w", path, err)
	}
	return path, created, nil
}

// Path returns the on-disk location of the config file.
func (c *Config) Path() string {
	return filepath.Join(c.ProjectDir, FileName)
}

// Logging returns the logger configuration.
func (c *Config) Logging() logging.Config {
	return c.Project.Logging
}

// TaskFiles returns the YAML definition files as absolute paths.
func (c *Config) TaskFiles() []string {
	return c.resolveAll(c.Project.Tasks.Files)
}

// ScriptDirs returns the Go definition script directories as absolute paths.
func (c *Config) ScriptDirs() []string {
	return c.resolveAll(c.Project.Tasks.Scripts)
}

// HistoryPath returns the absolute path of the run history file, or "" when
// the history is disabled.
func (c *Config) HistoryPath() string {
	if c.Project.Run.History == HistoryDisabled {
		return ""
	}
	return c.Resolve(c.Project.Run.History)
}

// Resolve turns a project-relative path into an absolute one.
func (c *Config) Resolve(path string) string {
	return resolvePath(c.ProjectDir, path)
}

// DefaultTask returns the task run when none is named.
func (c *Config) DefaultTask() string {
	return c.Project.Run.Default
}

// SetDefaultTask updates the default task and persists it to treadwell.yaml.
func (c *Config) SetDefaultTask(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("config: task name is required")
	}
	c.Project.Run.Default = name
	return c.saveProjectConfig()
}

func (c *Config) resolveAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if resolved := c.Resolve(p); resolved != "" {
			out = append(out, resolved)
		}
	}
	return out
}

func (c *Config) loadProjectConfig() error {
	path := c.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize()
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	c.Found = true
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Logging: logging.Config{Name: logging.DefaultName, Level: logging.LevelError, Format: logging.FormatConsole},
		Tasks:   TaskSources{Files: []string{defaultTaskFile}},
		Run:     RunConfig{History: defaultHistoryFile},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if pc.Logging.Name == "" {
		pc.Logging.Name = logging.DefaultName
	}
	if pc.Logging.Level == "" {
		pc.Logging.Level = logging.LevelError
	}
	if pc.Logging.Format == "" {
		pc.Logging.Format = logging.FormatConsole
	}
	if strings.TrimSpace(pc.Run.History) == "" {
		pc.Run.History = defaultHistoryFile
	}
}

func (pc *ProjectConfig) normalize() {
	pc.Logging.Name = strings.TrimSpace(pc.Logging.Name)
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Logging.Format = strings.ToLower(strings.TrimSpace(pc.Logging.Format))
	pc.Tasks.Files = trimAll(pc.Tasks.Files)
	pc.Tasks.Scripts = trimAll(pc.Tasks.Scripts)
	pc.Run.Default = strings.TrimSpace(pc.Run.Default)
	pc.Run.History = strings.TrimSpace(pc.Run.History)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	switch pc.Logging.Level {
	case logging.LevelDebug, logging.LevelInfo, logging.LevelWarn, "warning", logging.LevelError:
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	switch pc.Logging.Format {
	case logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("logging.format must be 'console' or 'json'")
	}
	return nil
}

func trimAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, err
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	c.Project.applyDefaults()
	c.Project.normalize()
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	data, err := yaml.Marshal(c.Project)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.Path(), data, 0o644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	c.Found = true
	return nil
}

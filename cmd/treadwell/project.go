package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/kixxauth/treadwell"
	"github.com/kixxauth/treadwell/internal/config"
	"github.com/kixxauth/treadwell/plugins"
)

// sourceFlags are task sources named on the command line. When any is set
// the project's configured sources are ignored.
type sourceFlags struct {
	files   []string
	scripts []string
}

func (s sourceFlags) empty() bool {
	return len(s.files) == 0 && len(s.scripts) == 0
}

// project is a loaded configuration with its task definitions registered on
// a fresh runner.
type project struct {
	cfg    *config.Config
	runner *treadwell.Runner
	defs   map[string]plugins.TaskDefinition
}

func loadProject(dir string, sources sourceFlags, logOutput io.Writer, opts ...treadwell.Option) (*project, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	src := plugins.Sources{Files: cfg.TaskFiles(), Scripts: cfg.ScriptDirs(), Optional: true}
	if !sources.empty() {
		src = plugins.Sources{Files: sources.files, Scripts: sources.scripts}
	}
	files, err := plugins.LoadSources(src)
	if err != nil {
		return nil, err
	}

	logs := cfg.Logging()
	logs.Output = logOutput
	base := []treadwell.Option{treadwell.WithOptions(treadwell.Options{Logging: logs})}
	runner := treadwell.Create(append(base, opts...)...)
	if err := plugins.Register(runner, files...); err != nil {
		return nil, err
	}
	defs := make(map[string]plugins.TaskDefinition, len(files))
	for _, file := range files {
		def := file.Definition.Normalized()
		defs[def.Name] = def
	}
	return &project{cfg: cfg, runner: runner, defs: defs}, nil
}

// taskName picks the task named on the command line or the configured
// default.
func (p *project) taskName(args []string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}
	if name := p.cfg.DefaultTask(); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("no task named and no run.default set in %s", p.cfg.Path())
}

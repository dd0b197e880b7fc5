package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kixxauth/treadwell/internal/config"
)

const projectYAML = `version: 1
tasks:
  files:
    - tasks.yaml
run:
  default: all
`

const tasksYAML = `tasks:
  - name: all
    description: Everything
    dependencies: [greet, {parallel: [left, right]}]
  - name: greet
    script: |
      package main

      func Run(args map[string]interface{}) (interface{}, error) {
          who, _ := args["who"].(string)
          if who == "" {
              who = "nobody"
          }
          return "hello " + who, nil
      }
  - name: left
    command: echo left
  - name: right
    command: echo right
  - name: broken
    dependencies: greet
    command: echo nope >&2; exit 3
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), []byte(projectYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tasks.yaml"), []byte(tasksYAML), 0o644))
	return dir
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunDefaultTask(t *testing.T) {
	dir := writeProject(t)

	stdout, stderr, err := execute(t, "run", "--dir", dir, "--set", "who=world")

	require.NoError(t, err, stderr)
	assert.Contains(t, stdout, "who: world")
	assert.Contains(t, stdout, "greet: hello world")
	assert.Contains(t, stdout, "left: left")
	assert.Contains(t, stdout, "right: right")
	assert.NotContains(t, stdout, "logger")
	assert.Contains(t, stderr, "done")
	assert.Contains(t, stderr, "all")
}

func TestRunNamedTask(t *testing.T) {
	dir := writeProject(t)

	stdout, _, err := execute(t, "run", "greet", "--dir", dir)

	require.NoError(t, err)
	assert.Equal(t, "greet: hello nobody\n", stdout)
}

func TestRunFailurePrintsChain(t *testing.T) {
	dir := writeProject(t)

	stdout, stderr, err := execute(t, "run", "broken", "--dir", dir)

	require.ErrorIs(t, err, errRunFailed)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "failed")
	assert.Contains(t, stderr, `synchronous error in task "broken"`)
	assert.Contains(t, stderr, "nope")
}

func TestRunUnknownTask(t *testing.T) {
	dir := writeProject(t)

	_, _, err := execute(t, "run", "ghost", "--dir", dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRunWithoutDefault(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, "run", "--dir", dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no task named")
}

func TestRunExplicitFiles(t *testing.T) {
	dir := writeProject(t)
	other := filepath.Join(t.TempDir(), "other.yaml")
	require.NoError(t, os.WriteFile(other, []byte("tasks:\n  - name: solo\n    command: echo solo\n"), 0o644))

	stdout, _, err := execute(t, "run", "solo", "--dir", dir, "-f", other)
	require.NoError(t, err)
	assert.Equal(t, "solo: solo\n", stdout)

	_, _, err = execute(t, "run", "greet", "--dir", dir, "-f", other)
	require.Error(t, err, "explicit files replace the configured ones")

	_, _, err = execute(t, "run", "solo", "--dir", dir, "-f", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err, "explicit files must exist")
}

func TestRunBadLogFormat(t *testing.T) {
	dir := writeProject(t)

	_, _, err := execute(t, "run", "greet", "--dir", dir, "--log-format", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestList(t *testing.T) {
	dir := writeProject(t)

	stdout, _, err := execute(t, "list", "--dir", dir)

	require.NoError(t, err)
	assert.Contains(t, stdout, "all")
	assert.Contains(t, stdout, "identity after [greet, {left, right}] - Everything")
	assert.Contains(t, stdout, "script")
	assert.Contains(t, stdout, "command after greet")
}

func TestListEmpty(t *testing.T) {
	stdout, _, err := execute(t, "list", "--dir", t.TempDir())

	require.NoError(t, err)
	assert.Contains(t, stdout, "no tasks defined")
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, "init", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "created")
	assert.FileExists(t, filepath.Join(dir, config.FileName))

	stdout, _, err = execute(t, "init", "--dir", dir, "--default", "build")
	require.NoError(t, err)
	assert.Contains(t, stdout, "exists")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "build", cfg.DefaultTask())
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "treadwell dev\n", stdout)
}

func TestHistoryAfterRun(t *testing.T) {
	dir := writeProject(t)

	stdout, _, err := execute(t, "history", "--dir", dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "no runs recorded")

	_, _, err = execute(t, "run", "greet", "--dir", dir)
	require.NoError(t, err)
	_, _, err = execute(t, "run", "broken", "--dir", dir)
	require.ErrorIs(t, err, errRunFailed)

	stdout, _, err = execute(t, "history", "--dir", dir, "-n", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "END   ")
	assert.Contains(t, lines[0], " greet")
	assert.Contains(t, lines[1], "ERROR ")
	assert.Contains(t, lines[1], " broken synchronous error")
	assert.Contains(t, lines[2], "showing 2 of 6 entries")
}

package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kixxauth/treadwell"
)

const goPluginSource = `package main

func TaskDefinitions() ([]map[string]any, error) {
	return []map[string]any{
		{
			"name":         "package",
			"dependencies": []any{"compile", map[string]any{"parallel": []any{"docs", "lint"}}},
			"command":      "echo packaged",
		},
		{"name": "compile"},
	}, nil
}`

func TestLoadGoDefinitionDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go-plugin.go"), []byte(goPluginSource), 0644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	defs, err := LoadGoDefinitionDir(dir)
	if err != nil {
		t.Fatalf("load go defs: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	pkg := defs[0].Definition
	if pkg.Name != "package" || pkg.Command != "echo packaged" {
		t.Fatalf("unexpected definition: %+v", pkg)
	}
	want := treadwell.Series{
		treadwell.Name("compile"),
		treadwell.Parallel{treadwell.Name("docs"), treadwell.Name("lint")},
	}
	if pkg.Dependencies.String() != want.String() {
		t.Fatalf("expected %s, got %s", want, pkg.Dependencies)
	}
	if defs[0].BaseDir != dir {
		t.Fatalf("expected base dir %s, got %s", dir, defs[0].BaseDir)
	}
}

func TestLoadGoDefinitionDirMissingFunc(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.go"), []byte("package main\n"), 0644); err != nil {
		t.Fatalf("write broken plugin: %v", err)
	}
	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatalf("expected error for missing TaskDefinitions function")
	}
}

func TestLoadGoDefinitionDirPropagatesError(t *testing.T) {
	dir := t.TempDir()
	source := `package main

import "errors"

func TaskDefinitions() ([]map[string]any, error) {
	return nil, errors.New("not today")
}`
	if err := os.WriteFile(filepath.Join(dir, "failing.go"), []byte(source), 0644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	if _, err := LoadGoDefinitionDir(dir); err == nil {
		t.Fatalf("expected error returned by TaskDefinitions")
	}
}

func TestLoadGoDefinitionDirMissing(t *testing.T) {
	defs, err := LoadGoDefinitionDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(defs) != 0 {
		t.Fatalf("missing dir should load nothing (defs=%d, err=%v)", len(defs), err)
	}
}

func TestLoadSourcesAcceptsGoScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.go")
	if err := os.WriteFile(path, []byte(goPluginSource), 0644); err != nil {
		t.Fatalf("write plugin: %v", err)
	}
	defs, err := LoadSources(Sources{Files: []string{path}})
	if err != nil {
		t.Fatalf("load sources: %v", err)
	}
	if len(defs) != 2 || defs[1].Definition.Name != "compile" {
		t.Fatalf("unexpected definitions: %+v", defs)
	}
	if defs[1].Path != path+"#2" {
		t.Fatalf("unexpected source path %s", defs[1].Path)
	}
}

func TestLoadGoDefinitionFileRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"takes args":   "package main\n\nfunc TaskDefinitions(n int) []map[string]any { return nil }\n",
		"not a slice":  "package main\n\nfunc TaskDefinitions() map[string]any { return nil }\n",
		"not maps":     "package main\n\nfunc TaskDefinitions() []any { return []any{\"build\"} }\n",
		"invalid task": "package main\n\nfunc TaskDefinitions() []map[string]any { return []map[string]any{{\"command\": \"ls\"}} }\n",
	}
	for name, source := range cases {
		path := filepath.Join(t.TempDir(), "defs.go")
		if err := os.WriteFile(path, []byte(source), 0644); err != nil {
			t.Fatalf("%s: write plugin: %v", name, err)
		}
		if _, err := LoadGoDefinitionFile(path); err == nil {
			t.Fatalf("%s: expected definition script to be rejected", name)
		}
	}
}

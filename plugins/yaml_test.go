package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kixxauth/treadwell"
)

const sampleDefinition = `tasks:
  - name: build
    description: Compile everything
    dependencies:
      - lint
      - parallel: [test-unit, test-int]
    command: echo built
  - name: lint
  - name: test-unit
    dependencies: lint
  - name: test-int
    dependencies:
      series: [lint, test-unit]
`

func TestParseDefinitionYAML(t *testing.T) {
	defs, err := ParseDefinitionYAML([]byte(sampleDefinition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("expected 4 definitions, got %d", len(defs))
	}
	build := defs[0]
	if build.Name != "build" || build.Kind() != "command" {
		t.Fatalf("unexpected definition: %+v", build)
	}
	want := treadwell.Series{
		treadwell.Name("lint"),
		treadwell.Parallel{treadwell.Name("test-unit"), treadwell.Name("test-int")},
	}
	if build.Dependencies.String() != want.String() {
		t.Fatalf("expected dependencies %s, got %s", want, build.Dependencies)
	}
	if defs[1].Kind() != "identity" || !defs[1].Dependencies.IsZero() {
		t.Fatalf("expected bare identity task, got %+v", defs[1])
	}
	if defs[2].Dependencies.Dependency != treadwell.Name("lint") {
		t.Fatalf("expected single name dependency, got %s", defs[2].Dependencies)
	}
	if defs[3].Dependencies.String() != "[lint, test-unit]" {
		t.Fatalf("expected series group, got %s", defs[3].Dependencies)
	}
}

func TestParseDefinitionYAMLErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no name":      "tasks:\n  - command: ls\n",
		"both bodies":  "tasks:\n  - name: a\n    command: ls\n    script: package main\n",
		"bad group":    "tasks:\n  - name: a\n    dependencies:\n      fanout: [b]\n",
		"two groups":   "tasks:\n  - name: a\n    dependencies:\n      parallel: [b]\n      series: [c]\n",
		"group scalar": "tasks:\n  - name: a\n    dependencies:\n      parallel: b\n",
		"empty dep":    "tasks:\n  - name: a\n    dependencies: [\"\"]\n",
		"dir no cmd":   "tasks:\n  - name: a\n    dir: build\n",
		"invalid yaml": "tasks: [\n",
	}
	for name, payload := range cases {
		if _, err := ParseDefinitionYAML([]byte(payload)); err == nil {
			t.Fatalf("%s: expected payload to fail validation", name)
		}
	}
}

func TestDependencySpecRoundTrip(t *testing.T) {
	defs, err := ParseDefinitionYAML([]byte(sampleDefinition))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	data, err := yaml.Marshal(taskFile{Tasks: defs})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := ParseDefinitionYAML(data)
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, data)
	}
	for i := range defs {
		if defs[i].Dependencies.String() != again[i].Dependencies.String() {
			t.Fatalf("dependencies of %s changed: %s -> %s", defs[i].Name, defs[i].Dependencies, again[i].Dependencies)
		}
	}
	if strings.Contains(string(data), "dependencies: []") {
		t.Fatalf("expected empty dependencies to be omitted:\n%s", data)
	}
}

func TestLoadDefinitionDir(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "tasks.yaml")
	if err := os.WriteFile(path, []byte(sampleDefinition), 0644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	defs, err := LoadDefinitionDir(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 4 {
		t.Fatalf("expected 4 definitions, got %d", len(defs))
	}
	if defs[0].Path != path+"#1" || defs[0].BaseDir != root {
		t.Fatalf("unexpected source %s (base %s)", defs[0].Path, defs[0].BaseDir)
	}
	if defs[0].Definition.Name != "build" {
		t.Fatalf("unexpected name: %+v", defs[0].Definition)
	}
}

func TestLoadDefinitionDirMissing(t *testing.T) {
	defs, err := LoadDefinitionDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if len(defs) != 0 {
		t.Fatalf("expected no definitions, got %d", len(defs))
	}
}

func TestLoadSourcesOptional(t *testing.T) {
	root := t.TempDir()
	missing := filepath.Join(root, "tasks.yaml")
	if _, err := LoadSources(Sources{Files: []string{missing}}); err == nil {
		t.Fatalf("expected missing file to fail")
	}
	defs, err := LoadSources(Sources{Files: []string{missing}, Optional: true})
	if err != nil || len(defs) != 0 {
		t.Fatalf("optional missing file should load nothing (defs=%d, err=%v)", len(defs), err)
	}
	if err := os.WriteFile(missing, []byte(sampleDefinition), 0644); err != nil {
		t.Fatal(err)
	}
	defs, err = LoadSources(Sources{Files: []string{root}})
	if err != nil || len(defs) != 4 {
		t.Fatalf("expected directory source to load 4 definitions (defs=%d, err=%v)", len(defs), err)
	}
}

package plugins

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/kixxauth/treadwell"
)

func TestRegisterRunsDefinitions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	root := t.TempDir()
	payload := `tasks:
  - name: version
    command: echo 1.2.3
  - name: greet
    script: |
      package main

      func Run(args map[string]interface{}) (interface{}, error) {
      	return "v" + args["version"].(string), nil
      }
    dependencies: version
  - name: all
    dependencies:
      parallel: [greet, version]
`
	path := filepath.Join(root, "tasks.yaml")
	if err := os.WriteFile(path, []byte(payload), 0644); err != nil {
		t.Fatal(err)
	}
	defs, err := LoadDefinitionFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	runner := treadwell.Create(treadwell.WithLogOutput(io.Discard))
	if err := Register(runner, defs...); err != nil {
		t.Fatalf("register: %v", err)
	}
	outcome, err := runner.Run(context.Background(), "all")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	result, err := outcome.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := result.Get("greet", nil); got != "v1.2.3" {
		t.Fatalf("unexpected greet result: %v", got)
	}
	if got := result.Get("version", nil); got != "1.2.3" {
		t.Fatalf("unexpected version result: %v", got)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	defs := []DefinitionFile{
		{Definition: TaskDefinition{Name: "a"}, Path: "one.yaml#1"},
		{Definition: TaskDefinition{Name: "a"}, Path: "two.yaml#1"},
	}
	if err := Register(treadwell.Create(), defs...); err == nil {
		t.Fatalf("expected duplicate task error")
	}
}

func TestRegisterRejectsBadScript(t *testing.T) {
	defs := []DefinitionFile{{Definition: TaskDefinition{Name: "a", Script: "package main\nfunc Run("}, Path: "x.yaml#1"}}
	runner := treadwell.Create()
	if err := Register(runner, defs...); err == nil {
		t.Fatalf("expected script compile error")
	}
	if len(runner.Tasks()) != 0 {
		t.Fatalf("nothing should be registered, got %v", runner.Tasks())
	}
}

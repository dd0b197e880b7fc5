package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"gopkg.in/yaml.v3"
)

// goDefinitionFuncName is the function a Go definition script must declare:
//
//	func TaskDefinitions() ([]map[string]any, error)
//
// The error result is optional. Each map uses the task file schema.
const goDefinitionFuncName = "TaskDefinitions"

func isGoScript(name string) bool {
	return filepath.Ext(name) == ".go" && !strings.HasSuffix(name, "_test.go")
}

// LoadGoDefinitionDir interprets every Go definition script in dir. A missing
// directory holds no tasks.
func LoadGoDefinitionDir(dir string) ([]DefinitionFile, error) {
	paths, err := sourceFiles(dir, isGoScript)
	if err != nil {
		return nil, err
	}
	var defs []DefinitionFile
	for _, path := range paths {
		loaded, err := LoadGoDefinitionFile(path)
		if err != nil {
			return nil, err
		}
		defs = append(defs, loaded...)
	}
	sortDefinitions(defs)
	return defs, nil
}

// LoadGoDefinitionFile interprets one Go definition script and validates the
// definitions its TaskDefinitions function returns.
func LoadGoDefinitionFile(path string) ([]DefinitionFile, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plugin: read %s: %w", path, err)
	}
	if strings.TrimSpace(string(code)) == "" {
		return nil, fmt.Errorf("plugin: %s is empty", path)
	}
	i := newInterpreter()
	if _, err := i.Eval(string(code)); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", path, err)
	}
	fn, err := i.Eval(goDefinitionFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s() ([]map[string]any, error): %w", path, goDefinitionFuncName, err)
	}
	raw, err := callDefinitionFunc(fn)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}

	// Round-trip through the task file schema so scripts and YAML files share
	// one set of decoding and validation rules.
	payload, err := yaml.Marshal(map[string]any{"tasks": raw})
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: encode definitions: %w", path, err)
	}
	parsed, err := ParseDefinitionYAML(payload)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", path, err)
	}
	return sourcedDefinitions(path, parsed), nil
}

func newInterpreter() *interp.Interpreter {
	i := interp.New(interp.Options{})
	i.Use(stdlib.Symbols)
	return i
}

func callDefinitionFunc(fn reflect.Value) ([]any, error) {
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", goDefinitionFuncName)
	}
	typ := fn.Type()
	if typ.NumIn() != 0 || typ.NumOut() < 1 || typ.NumOut() > 2 {
		return nil, fmt.Errorf("%s must have signature func() ([]map[string]any, error)", goDefinitionFuncName)
	}
	results := fn.Call(nil)
	if len(results) == 2 {
		if err := errorResult(results[1]); err != nil {
			return nil, err
		}
	}
	list := results[0]
	if list.Kind() != reflect.Slice {
		return nil, fmt.Errorf("%s must return a slice of maps", goDefinitionFuncName)
	}
	out := make([]any, list.Len())
	for idx := range out {
		entry := list.Index(idx).Interface()
		if _, ok := entry.(map[string]any); !ok {
			return nil, fmt.Errorf("%s[%d] is %T, not map[string]any", goDefinitionFuncName, idx, entry)
		}
		out[idx] = entry
	}
	return out, nil
}

// errorResult reads the trailing error value of an interpreted call.
func errorResult(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Interface, reflect.Ptr:
		if v.IsNil() {
			return nil
		}
	}
	if err, ok := v.Interface().(error); ok {
		return err
	}
	return fmt.Errorf("second return value is %s, not error", v.Type())
}

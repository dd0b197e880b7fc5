package plugins

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kixxauth/treadwell"
)

const scriptFuncName = "Run"

// Body builds the task body the definition declares. baseDir anchors a
// relative command dir. A nil body means the task is an identity task.
func (def TaskDefinition) Body(baseDir string) (any, error) {
	normalized := def.Normalized()
	switch normalized.Kind() {
	case "command":
		return commandBody(normalized, baseDir), nil
	case "script":
		return scriptBody(normalized)
	}
	return nil, nil
}

func commandBody(def TaskDefinition, baseDir string) treadwell.SyncFunc {
	dir := def.Dir
	if dir == "" {
		dir = baseDir
	} else if !filepath.IsAbs(dir) && baseDir != "" {
		dir = filepath.Join(baseDir, dir)
	}
	env := make([]string, 0, len(def.Env)+1)
	keys := make([]string, 0, len(def.Env))
	for key := range def.Env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		env = append(env, key+"="+def.Env[key])
	}
	env = append(env, "TREADWELL_TASK="+def.Name)

	return func(ctx context.Context, args *treadwell.Args) (any, error) {
		logger := args.Logger().Named(def.Name)
		cmd := shellCommand(ctx, def.Command)
		cmd.Dir = dir
		cmd.Env = append(os.Environ(), env...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		logger.Debug("exec", zap.String("command", def.Command), zap.String("dir", dir))
		if err := cmd.Run(); err != nil {
			detail := strings.TrimSpace(stderr.String())
			if detail != "" {
				return nil, fmt.Errorf("command %q: %w: %s", def.Command, err, detail)
			}
			return nil, fmt.Errorf("command %q: %w", def.Command, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			logger.Info("stderr", zap.String("output", msg))
		}
		return strings.TrimSpace(stdout.String()), nil
	}
}

func shellCommand(ctx context.Context, command string) *exec.Cmd {
	if runtime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", command)
	}
	return exec.CommandContext(ctx, "sh", "-c", command)
}

// scriptBody interprets the script once and calls its Run function for each
// invocation. The script sees a plain copy of the result container.
func scriptBody(def TaskDefinition) (treadwell.SyncFunc, error) {
	i := newInterpreter()
	if _, err := i.Eval(def.Script); err != nil {
		return nil, fmt.Errorf("plugin: task %s: interpret script: %w", def.Name, err)
	}
	fnValue, err := i.Eval(scriptFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: task %s: script must define %s(map[string]interface{}) (interface{}, error): %w", def.Name, scriptFuncName, err)
	}
	if fnValue.Kind() != reflect.Func || fnValue.Type().NumIn() != 1 || fnValue.Type().NumOut() != 2 {
		return nil, fmt.Errorf("plugin: task %s: %s must have signature func(map[string]interface{}) (interface{}, error)", def.Name, scriptFuncName)
	}
	var mu sync.Mutex
	return func(_ context.Context, args *treadwell.Args) (any, error) {
		input := args.Map()
		delete(input, treadwell.LoggerKey)
		mu.Lock()
		results := fnValue.Call([]reflect.Value{reflect.ValueOf(input)})
		mu.Unlock()
		if err := errorResult(results[1]); err != nil {
			return nil, err
		}
		return results[0].Interface(), nil
	}, nil
}

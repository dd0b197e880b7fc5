package treadwell

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/kixxauth/treadwell/internal/logging"
	"github.com/kixxauth/treadwell/internal/merge"
)

// LoggerKey is the Args key under which a run stores its logger.
const LoggerKey = "logger"

// Args is the result container threaded through a run. Keys keep their
// insertion order. Every task reads what its predecessors recorded and adds
// its own entry under its task name.
type Args struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]any
}

// NewArgs returns an empty container.
func NewArgs() *Args {
	return &Args{values: map[string]any{}}
}

// ArgsFrom builds a container from props. Keys are inserted in sorted order
// since Go maps have none of their own.
func ArgsFrom(props map[string]any) *Args {
	a := NewArgs()
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a.Set(key, props[key])
	}
	return a
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (a *Args) Set(key string, value any) *Args {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(key, value)
	return a
}

func (a *Args) setLocked(key string, value any) {
	if a.values == nil {
		a.values = map[string]any{}
	}
	if _, exists := a.values[key]; !exists {
		a.keys = append(a.keys, key)
	}
	a.values[key] = value
}

// Lookup returns the value stored directly under key.
func (a *Args) Lookup(key string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	value, ok := a.values[key]
	return value, ok
}

// Get walks a dotted path ("build.output.0") and returns def when any
// segment is missing.
func (a *Args) Get(path string, def any) any {
	return a.GetPath(strings.Split(path, "."), def)
}

// GetPath is Get with a pre-split path.
func (a *Args) GetPath(segments []string, def any) any {
	if len(segments) == 0 {
		return def
	}
	var current any = a
	for _, segment := range segments {
		next, ok := lookupSegment(current, segment)
		if !ok {
			return def
		}
		current = next
	}
	return current
}

func lookupSegment(current any, segment string) (any, bool) {
	switch value := current.(type) {
	case *Args:
		if value == nil {
			return nil, false
		}
		return value.Lookup(segment)
	case map[string]any:
		item, ok := value[segment]
		return item, ok
	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= len(value) {
			return nil, false
		}
		return value[idx], true
	}
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		item := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
		if !item.IsValid() {
			return nil, false
		}
		return item.Interface(), true
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(segment)
		if err != nil || idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	}
	return nil, false
}

// Keys returns the keys in insertion order.
func (a *Args) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.keys))
	copy(out, a.keys)
	return out
}

// Len returns the number of keys.
func (a *Args) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.keys)
}

// Merge merges source into a and returns a. Nested records merge key by
// key; sequences and dates are replaced by copies. Source is left untouched.
func (a *Args) Merge(source *Args) *Args {
	if source == nil || source == a {
		return a
	}
	keys, values := source.snapshot()
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, key := range keys {
		incoming := values[key]
		current, exists := a.values[key]
		if !exists {
			a.setLocked(key, merge.Copy(incoming))
			continue
		}
		a.values[key] = merge.Value(current, incoming)
	}
	return a
}

func (a *Args) snapshot() ([]string, map[string]any) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, len(a.keys))
	copy(keys, a.keys)
	values := make(map[string]any, len(a.values))
	for key, value := range a.values {
		values[key] = value
	}
	return keys, values
}

// Clone returns a deep copy of a.
func (a *Args) Clone() *Args {
	return NewArgs().Merge(a)
}

// MergeFrom merges a nested container key by key when a holds one under the
// same key as incoming.
func (a *Args) MergeFrom(incoming any) bool {
	src, ok := incoming.(*Args)
	if !ok || src == nil || a == nil {
		return false
	}
	a.Merge(src)
	return true
}

// DeepCopy lets nested containers be copied by the merge utility.
func (a *Args) DeepCopy() any {
	return a.Clone()
}

// Map returns a deep copy of the entries as a plain map.
func (a *Args) Map() map[string]any {
	keys, values := a.snapshot()
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		out[key] = merge.Copy(values[key])
	}
	return out
}

// Logger returns the run logger seeded under LoggerKey, or a no-op logger.
func (a *Args) Logger() *Logger {
	if value, ok := a.Lookup(LoggerKey); ok {
		if logger, ok := value.(*logging.Logger); ok && logger != nil {
			return logger
		}
	}
	return logging.Nop()
}

// MarshalJSON encodes the entries as an object in insertion order. The
// logger entry is skipped.
func (a *Args) MarshalJSON() ([]byte, error) {
	keys, values := a.snapshot()
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, key := range keys {
		if key == LoggerKey {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the entries as a mapping in insertion order. The
// logger entry is skipped.
func (a *Args) MarshalYAML() (any, error) {
	keys, values := a.snapshot()
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, key := range keys {
		if key == LoggerKey {
			continue
		}
		var value yaml.Node
		if err := value.Encode(values[key]); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&value,
		)
	}
	return node, nil
}

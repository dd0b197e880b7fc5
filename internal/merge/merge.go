// Package merge deep-merges plain data: string-keyed records, sequences and
// dates. It is used to fold the results of parallel task groups together.
package merge

import (
	"reflect"
	"time"
)

// Into merges source into target and returns target. Source is never mutated.
// A nil target is replaced by an empty record.
func Into(target, source map[string]any) map[string]any {
	if target == nil {
		target = make(map[string]any, len(source))
	}
	for key, incoming := range source {
		current, ok := target[key]
		if !ok {
			target[key] = Copy(incoming)
			continue
		}
		target[key] = Value(current, incoming)
	}
	return target
}

// Value returns what a slot holding current should hold after incoming is
// merged over it. Records merge recursively into current, as does a Merger
// that accepts incoming; everything else is replaced by a copy of incoming.
func Value(current, incoming any) any {
	if dst, ok := current.(Merger); ok && dst.MergeFrom(incoming) {
		return current
	}
	src, ok := incoming.(map[string]any)
	if !ok || src == nil {
		return Copy(incoming)
	}
	dst, ok := current.(map[string]any)
	if !ok || dst == nil {
		return Copy(incoming)
	}
	return Into(dst, src)
}

// Copy returns a deep copy of v. Records, sequences and dates are never
// aliased; other values are returned as-is. Cyclic input is not detected.
func Copy(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if value == nil {
			return value
		}
		out := make(map[string]any, len(value))
		for key, item := range value {
			out[key] = Copy(item)
		}
		return out
	case []any:
		if value == nil {
			return value
		}
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = Copy(item)
		}
		return out
	case time.Time:
		return value
	case *time.Time:
		if value == nil {
			return value
		}
		t := *value
		return &t
	case Copier:
		return value.DeepCopy()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		if rv.IsNil() {
			return v
		}
		return copySequence(rv).Interface()
	case reflect.Array:
		return copySequence(rv).Interface()
	case reflect.Map:
		if rv.IsNil() {
			return v
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyElem(iter.Value(), rv.Type().Elem()))
		}
		return out.Interface()
	}
	return v
}

// Copier is implemented by values that know how to deep-copy themselves.
type Copier interface {
	DeepCopy() any
}

// Merger is implemented by record types other than map[string]any. MergeFrom
// merges incoming into the receiver in place and reports false, leaving the
// receiver untouched, when incoming is not something it can merge.
type Merger interface {
	MergeFrom(incoming any) bool
}

// IsRecord reports whether v merges key by key rather than being replaced.
func IsRecord(v any) bool {
	switch value := v.(type) {
	case map[string]any:
		return value != nil
	case Merger:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice:
			return !rv.IsNil()
		}
		return true
	}
	return false
}

func copySequence(rv reflect.Value) reflect.Value {
	var out reflect.Value
	if rv.Kind() == reflect.Array {
		out = reflect.New(rv.Type()).Elem()
	} else {
		out = reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
	}
	elemType := rv.Type().Elem()
	for i := 0; i < rv.Len(); i++ {
		out.Index(i).Set(copyElem(rv.Index(i), elemType))
	}
	return out
}

func copyElem(item reflect.Value, elemType reflect.Type) reflect.Value {
	if !item.IsValid() {
		return reflect.Zero(elemType)
	}
	if item.Kind() == reflect.Interface && item.IsNil() {
		return reflect.Zero(elemType)
	}
	copied := Copy(item.Interface())
	if copied == nil {
		return reflect.Zero(elemType)
	}
	cv := reflect.ValueOf(copied)
	if !cv.Type().AssignableTo(elemType) {
		return item
	}
	return cv
}

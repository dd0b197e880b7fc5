package treadwell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDependencies(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want Dependency
	}{
		{"nil", nil, Series{}},
		{"name", "lint", Name("lint")},
		{"trimmed name", "  lint ", Name("lint")},
		{"string list", []string{"a", "b"}, Series{Name("a"), Name("b")}},
		{"series", Serial("a", "b"), Series{Name("a"), Name("b")}},
		{"parallel dedupes", Concurrent("a", "b", "a"), Parallel{Name("a"), Name("b")}},
		{"set sorts", NewSet("b", "a"), Parallel{Name("a"), Name("b")}},
		{"bool map", map[string]bool{"b": true, "a": true, "skip": false}, Parallel{Name("a"), Name("b")}},
		{"nested any", []any{"a", Concurrent("b", "c")}, Series{Name("a"), Parallel{Name("b"), Name("c")}}},
		{"nested groups", Series{Name("a"), Parallel{Series{Name("b"), Name("c")}, Name("d")}},
			Series{Name("a"), Parallel{Series{Name("b"), Name("c")}, Name("d")}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeDependencies(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeDependenciesRejectsInvalidShapes(t *testing.T) {
	for _, in := range []any{42, "", []string{"a", " "}, []any{"a", nil}, Series{Name("")}, struct{}{}} {
		_, err := normalizeDependencies(in)
		assert.ErrorIs(t, err, ErrInvalidDependencies, "input %#v", in)
	}
}

func TestDependencyString(t *testing.T) {
	dep := Series{Name("a"), Parallel{Name("b"), Name("c")}}
	assert.Equal(t, "[a, {b, c}]", dep.String())
}

func TestDependencyNamesDepthFirst(t *testing.T) {
	dep := Series{Name("a"), Parallel{Series{Name("b"), Name("c")}, Name("d")}}
	assert.Equal(t, []string{"a", "b", "c", "d"}, dependencyNames(dep))
	assert.Empty(t, dependencyNames(Series{}))
}

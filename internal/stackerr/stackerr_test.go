package stackerr

import (
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapJoinsMessages(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(`synchronous error in task "a"`, cause)
	assert.Equal(t, `synchronous error in task "a": boom`, err.Error())
	assert.Same(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap("plain", nil)
	assert.Equal(t, "plain", err.Error())
	assert.Nil(t, err.Unwrap())
	assert.Empty(t, err.Causes())
}

func TestWrapFlattensNestedChains(t *testing.T) {
	root := errors.New("root")
	inner := Wrap("inner", root)
	outer := Wrap("outer", inner)

	causes := outer.Causes()
	require.Len(t, causes, 2)
	assert.Same(t, inner, causes[0])
	assert.Same(t, root, causes[1])
	assert.Equal(t, "outer: inner: root", outer.Error())
}

func TestFullStackRendersEveryCause(t *testing.T) {
	root := fmt.Errorf("plain cause")
	err := Wrap("outer", Wrap("inner", root))

	full := err.FullStack()
	parts := strings.Split(full, Separator)
	require.Len(t, parts, 3)
	assert.True(t, strings.HasPrefix(parts[0], "outer: inner: plain cause"))
	assert.True(t, strings.HasPrefix(parts[1], "inner: plain cause"))
	assert.Equal(t, "plain cause\nNo stack trace", parts[2])
	assert.Contains(t, parts[0], "TestFullStackRendersEveryCause")
}

func TestFormatVerbs(t *testing.T) {
	err := Wrap("outer", errors.New("cause"))
	assert.Equal(t, "outer: cause", fmt.Sprintf("%v", err))
	assert.Equal(t, "outer: cause", fmt.Sprintf("%s", err))
	assert.Equal(t, `"outer: cause"`, fmt.Sprintf("%q", err))
	assert.Contains(t, fmt.Sprintf("%+v", err), Separator)
}

func TestFullStackOfForeignError(t *testing.T) {
	assert.Equal(t, "", FullStack(nil))
	assert.Contains(t, FullStack(errors.New("x")), "stackerr_test.go")
	assert.Equal(t, "y\nNo stack trace", FullStack(fmt.Errorf("y")))
}

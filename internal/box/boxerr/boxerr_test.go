package boxerr

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

func TestKindOfDirect(t *testing.T) {
	err := New(Protocol, "bad message")
	kind, ok := KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, Protocol)
}

// KindOf must unwrap through an arbitrary chain of fmt.Errorf %w
// wrapping to find the originating Kind.
func TestKindOfUnwrapsChain(t *testing.T) {
	base := New(Io, "read fd")
	wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", base))
	kind, ok := KindOf(wrapped)
	assert.Assert(t, ok)
	assert.Equal(t, kind, Io)
}

func TestKindOfNoKindedError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.Assert(t, !ok)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Assert(t, Wrap(Io, "op", nil) == nil)
}

func TestErrorMessageFormat(t *testing.T) {
	err := Wrap(Hook, "run prestart", errors.New("exit status 1"))
	assert.Equal(t, err.Error(), "Hook: run prestart: exit status 1")
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(State, "transition", cause)
	assert.Assert(t, errors.Is(err, cause))
}

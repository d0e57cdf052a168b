package syncchan

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

func newTestPair(t *testing.T) (*Endpoint, *Endpoint) {
	t.Helper()
	pair, err := New()
	assert.NilError(t, err)
	parent, err := NewEndpoint(pair.Parent)
	assert.NilError(t, err)
	child, err := NewEndpoint(pair.Child)
	assert.NilError(t, err)
	t.Cleanup(func() {
		parent.Close()
		child.Close()
	})
	return parent, child
}

func TestSendExpectRoundTrip(t *testing.T) {
	parent, child := newTestPair(t)

	errc := make(chan error, 1)
	go func() { errc <- parent.Send(RequestConfigureNamespace) }()
	assert.NilError(t, child.Expect(RequestConfigureNamespace))
	assert.NilError(t, <-errc)
}

// Expect must reject a message other than the one awaited with a
// Protocol-kinded error, never silently accept it.
func TestExpectMismatchIsProtocolError(t *testing.T) {
	parent, child := newTestPair(t)

	go parent.Send(NamespaceConfigured)
	err := child.Expect(RequestConfigureNamespace)
	assert.Assert(t, err != nil)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Protocol)
}

// WaitClose treats an orderly close of the peer's end as "proceed",
// not as an error.
func TestWaitCloseOnPeerClose(t *testing.T) {
	parent, child := newTestPair(t)
	assert.NilError(t, parent.Close())
	assert.NilError(t, child.WaitClose())
}

// WaitClose must reject any further byte sent instead of a close.
func TestWaitCloseRejectsUnexpectedByte(t *testing.T) {
	parent, child := newTestPair(t)
	go parent.Send(NamespaceConfigured)
	err := child.WaitClose()
	assert.Assert(t, err != nil)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Protocol)
}

func TestMessageStringUnknown(t *testing.T) {
	assert.Equal(t, Message(255).String(), "UNKNOWN(255)")
}

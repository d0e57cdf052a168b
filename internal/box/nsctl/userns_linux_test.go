package nsctl

import (
	"os"
	"testing"

	"gotest.tools/v3/assert"
)

// The test process itself runs in the host's initial user namespace,
// whose uid_map covers the full 32-bit range.
func TestIsInsideUserNamespaceHostProcess(t *testing.T) {
	assert.Assert(t, !IsInsideUserNamespace(os.Getpid()))
}

func TestIsInsideUserNamespaceUnknownPid(t *testing.T) {
	assert.Assert(t, !IsInsideUserNamespace(-1))
}

package mount

import (
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

func TestFromSpecBindRequiresSource(t *testing.T) {
	_, err := FromSpec(specs.Mount{Type: "bind", Destination: "/app"})
	assert.Assert(t, err != nil)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}

func TestFromSpecRequiresDestination(t *testing.T) {
	_, err := FromSpec(specs.Mount{Type: "tmpfs"})
	assert.Assert(t, err != nil)
}

func TestFromSpecBindViaOptionRequiresSource(t *testing.T) {
	_, err := FromSpec(specs.Mount{Type: "none", Destination: "/app", Options: []string{"bind"}})
	assert.Assert(t, err != nil)
}

func TestFromSpecValidBind(t *testing.T) {
	e, err := FromSpec(specs.Mount{Type: "bind", Source: "/host/app", Destination: "/app", Options: []string{"bind", "ro"}})
	assert.NilError(t, err)
	assert.Assert(t, e.IsBind())
}

func TestNeedsDirSource(t *testing.T) {
	for _, fsType := range []string{"proc", "sysfs", "devpts", "tmpfs", "mqueue", "cgroup", "cgroup2"} {
		assert.Assert(t, NeedsDirSource(fsType), fsType)
	}
	assert.Assert(t, !NeedsDirSource("bind"))
	assert.Assert(t, !NeedsDirSource(""))
}

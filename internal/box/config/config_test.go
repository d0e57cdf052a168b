package config

import (
	"testing"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

func minimalSpec() *specs.Spec {
	return &specs.Spec{
		Version: "1.0.2",
		Process: &specs.Process{
			Args: []string{"/bin/sh"},
			Cwd:  "/",
		},
		Root: &specs.Root{Path: "rootfs"},
	}
}

func TestFromSpecRejectsNil(t *testing.T) {
	_, err := FromSpec(nil)
	assert.Assert(t, err != nil)
}

func TestFromSpecRejectsUnsupportedVersion(t *testing.T) {
	s := minimalSpec()
	s.Version = "2.0.0"
	_, err := FromSpec(s)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}

func TestFromSpecRequiresProcessAndRoot(t *testing.T) {
	s := minimalSpec()
	s.Process = nil
	_, err := FromSpec(s)
	assert.Assert(t, err != nil)

	s = minimalSpec()
	s.Root = nil
	_, err = FromSpec(s)
	assert.Assert(t, err != nil)
}

func TestFromSpecRejectsRelativeCwd(t *testing.T) {
	s := minimalSpec()
	s.Process.Cwd = "relative"
	_, err := FromSpec(s)
	assert.Assert(t, err != nil)
}

func TestFromSpecRejectsDuplicateEnvKey(t *testing.T) {
	s := minimalSpec()
	s.Process.Env = []string{"FOO=1", "FOO=2"}
	_, err := FromSpec(s)
	assert.Assert(t, err != nil)
}

func TestFromSpecRejectsDuplicateNamespace(t *testing.T) {
	s := minimalSpec()
	s.Linux = &specs.Linux{Namespaces: []specs.LinuxNamespace{
		{Type: specs.PIDNamespace},
		{Type: specs.PIDNamespace},
	}}
	_, err := FromSpec(s)
	assert.Assert(t, err != nil)
}

func TestFromSpecDefaultsRootfsPropagationToPrivate(t *testing.T) {
	s := minimalSpec()
	c, err := FromSpec(s)
	assert.NilError(t, err)
	assert.Equal(t, c.RootfsPropagation, PropagationPrivate)
}

func TestFromSpecHonorsExplicitRootfsPropagation(t *testing.T) {
	s := minimalSpec()
	s.Linux = &specs.Linux{RootfsPropagation: "shared"}
	c, err := FromSpec(s)
	assert.NilError(t, err)
	assert.Equal(t, c.RootfsPropagation, PropagationShared)
}

func TestFromSpecConvertsHooks(t *testing.T) {
	s := minimalSpec()
	timeout := 5
	s.Hooks = &specs.Hooks{
		Prestart: []specs.Hook{{Path: "/usr/bin/true", Timeout: &timeout}},
	}
	c, err := FromSpec(s)
	assert.NilError(t, err)
	assert.Equal(t, len(c.Hooks.Prestart), 1)
	assert.Equal(t, c.Hooks.Prestart[0].Timeout, 5)
}

// HasCreateRuntime and HasStartContainer are the single source of
// truth both ends of the sync channel gate their extra round on; a
// mismatch here means the parent and the child disagree about which
// bytes cross the wire.
func TestHookSetHasCreateRuntime(t *testing.T) {
	assert.Assert(t, !HookSet{}.HasCreateRuntime())
	assert.Assert(t, HookSet{Prestart: []Hook{{Path: "/bin/true"}}}.HasCreateRuntime())
	assert.Assert(t, HookSet{CreateRuntime: []Hook{{Path: "/bin/true"}}}.HasCreateRuntime())
}

func TestHookSetHasStartContainer(t *testing.T) {
	assert.Assert(t, !HookSet{}.HasStartContainer())
	assert.Assert(t, HookSet{StartContainer: []Hook{{Path: "/bin/true"}}}.HasStartContainer())
}

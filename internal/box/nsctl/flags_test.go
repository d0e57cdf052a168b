package nsctl

import (
	"syscall"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/config"
)

// BuildPlan composes its clone-flag bitset as a commutative fold over
// the namespace set: the result depends only on which kinds are
// present, not the order they were listed in.
func TestBuildPlanOrderIndependent(t *testing.T) {
	a := []config.Namespace{{Kind: config.NSMount}, {Kind: config.NSPid}, {Kind: config.NSUser}}
	b := []config.Namespace{{Kind: config.NSUser}, {Kind: config.NSPid}, {Kind: config.NSMount}}

	planA, err := BuildPlan(a)
	assert.NilError(t, err)
	planB, err := BuildPlan(b)
	assert.NilError(t, err)

	assert.Equal(t, planA.CloneFlags, planB.CloneFlags)
}

func TestBuildPlanSetsExpectedBits(t *testing.T) {
	plan, err := BuildPlan([]config.Namespace{{Kind: config.NSPid}, {Kind: config.NSNetwork}})
	assert.NilError(t, err)
	assert.Equal(t, plan.CloneFlags&uintptr(syscall.CLONE_NEWPID), uintptr(syscall.CLONE_NEWPID))
	assert.Equal(t, plan.CloneFlags&uintptr(syscall.CLONE_NEWNET), uintptr(syscall.CLONE_NEWNET))
	assert.Equal(t, plan.CloneFlags&uintptr(syscall.CLONE_NEWUTS), uintptr(0))
}

func TestBuildPlanRejectsDuplicateKind(t *testing.T) {
	_, err := BuildPlan([]config.Namespace{{Kind: config.NSMount}, {Kind: config.NSMount}})
	assert.ErrorContains(t, err, "duplicate namespace kind")
}

func TestBuildPlanRejectsUnknownKind(t *testing.T) {
	_, err := BuildPlan([]config.Namespace{{Kind: config.NamespaceKind("bogus")}})
	assert.ErrorContains(t, err, "unknown namespace kind")
}

// A namespace with a non-empty Path joins an existing namespace rather
// than contributing to the clone-time bitset.
func TestBuildPlanPathQualifiedJoinsInsteadOfCloning(t *testing.T) {
	plan, err := BuildPlan([]config.Namespace{{Kind: config.NSNetwork, Path: "/var/run/netns/foo"}})
	assert.NilError(t, err)
	assert.Equal(t, plan.CloneFlags&uintptr(syscall.CLONE_NEWNET), uintptr(0))
	assert.Equal(t, plan.JoinPaths[config.NSNetwork], "/var/run/netns/foo")
}

package hook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
)

func TestRunPhaseRunsInOrderAndFailsFast(t *testing.T) {
	trace := filepath.Join(t.TempDir(), "trace")
	hooks := []config.Hook{
		{Path: "/bin/sh", Args: []string{"sh", "-c", "echo 1 >> " + trace}},
		{Path: "/bin/false", Args: []string{"false"}},
		{Path: "/bin/sh", Args: []string{"sh", "-c", "echo 3 >> " + trace}},
	}
	err := RunPhase(context.Background(), hooks, State{ID: "c1"})
	assert.Assert(t, err != nil)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Hook)

	// Only the hook before the failing one ran.
	got, err := os.ReadFile(trace)
	assert.NilError(t, err)
	assert.Equal(t, string(got), "1\n")
}

func TestRunPhaseEmptyIsNoOp(t *testing.T) {
	assert.NilError(t, RunPhase(context.Background(), nil, State{}))
}

func TestRunPhaseTimeout(t *testing.T) {
	timeout := 1
	hooks := []config.Hook{{Path: "/bin/sleep", Args: []string{"sleep", "5"}, Timeout: timeout}}
	err := RunPhase(context.Background(), hooks, State{})
	assert.Assert(t, err != nil)
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Hook)
}

func TestRunPhasePipesStateOnStdin(t *testing.T) {
	// The hook exits non-zero unless the marshaled state arrives on stdin.
	hooks := []config.Hook{{Path: "/bin/sh", Args: []string{"sh", "-c", `grep -q '"id":"c1","status":"creating"'`}}}
	err := RunPhase(context.Background(), hooks, State{ID: "c1", Status: "creating"})
	assert.NilError(t, err)
}

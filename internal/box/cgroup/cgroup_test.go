package cgroup

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

func TestNewDefaultIsDisabled(t *testing.T) {
	m, err := New("")
	assert.NilError(t, err)
	assert.Equal(t, m.Name(), "disabled")
}

func TestNewDisabledExplicit(t *testing.T) {
	m, err := New("disabled")
	assert.NilError(t, err)
	assert.Equal(t, m.Name(), "disabled")
}

func TestNewCgroupfsIsConfigError(t *testing.T) {
	_, err := New("cgroupfs")
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}

func TestNewSystemdIsConfigError(t *testing.T) {
	_, err := New("systemd")
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}

func TestNewUnknownIsConfigError(t *testing.T) {
	_, err := New("bogus")
	kind, ok := boxerr.KindOf(err)
	assert.Assert(t, ok)
	assert.Equal(t, kind, boxerr.Config)
}

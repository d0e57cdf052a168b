// Package cgroup selects a cgroup resource-limiting backend by name.
// Only the disabled backend is implemented: box's initial scope is
// rootless desktop-application sandboxing, where the caller's own
// session rarely has delegated cgroup write access, so cgroupfs and
// systemd are named in the CLI flag vocabulary but rejected with a
// clear configuration error rather than silently behaving like
// disabled.
package cgroup

import (
	"github.com/linyaps-box/box/internal/box/boxerr"
)

// Manager is the capability set a cgroup backend exposes. It is
// intentionally minimal until a real backend lands.
type Manager interface {
	// Name reports the backend's selection name, as it would be
	// passed to --cgroup-manager.
	Name() string
}

type disabledManager struct{}

func (disabledManager) Name() string { return "disabled" }

// New dispatches by name to a Manager. "" is treated as "disabled".
func New(name string) (Manager, error) {
	switch name {
	case "", "disabled":
		return disabledManager{}, nil
	case "cgroupfs", "systemd":
		return nil, boxerr.New(boxerr.Config, "cgroup manager "+name+" is not implemented")
	default:
		return nil, boxerr.New(boxerr.Config, "unknown cgroup manager "+name)
	}
}

package mount

import (
	"fmt"

	specs "github.com/opencontainers/runtime-spec/specs-go"
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// Entry is one configured mount.
type Entry struct {
	Source          string
	Destination     string
	Type            string
	Flags           uintptr
	Propagation     uintptr
	Ext             ExtFlag
	Data            string
}

// FromSpec builds an Entry from an OCI specs.Mount, enforcing the
// source/destination invariants: bind mounts require a source,
// everything else box auto-populates defaults for requires a
// destination.
func FromSpec(m specs.Mount) (Entry, error) {
	flags, prop, ext, data := ParseOptions(m.Options)

	e := Entry{
		Source:      m.Source,
		Destination: m.Destination,
		Type:        m.Type,
		Flags:       flags,
		Propagation: prop,
		Ext:         ext,
		Data:        data,
	}

	isBind := m.Type == "bind" || flags&unix.MS_BIND != 0
	if isBind && e.Source == "" {
		return Entry{}, boxerr.New(boxerr.Config, fmt.Sprintf("bind mount to %q requires a source", m.Destination))
	}
	if e.Destination == "" {
		return Entry{}, boxerr.New(boxerr.Config, fmt.Sprintf("mount of type %q requires a destination", m.Type))
	}
	return e, nil
}

// IsBind reports whether this entry is a bind mount.
func (e Entry) IsBind() bool {
	return e.Type == "bind" || e.Flags&unix.MS_BIND != 0
}

// NeedsDirSource reports whether the entry's filesystem type is one of
// the non-bind kinds that always mount onto a directory, by fiat, for
// proc/sysfs/devpts/tmpfs/mqueue/cgroup.
func NeedsDirSource(fsType string) bool {
	switch fsType {
	case "proc", "sysfs", "devpts", "tmpfs", "mqueue", "cgroup", "cgroup2":
		return true
	default:
		return false
	}
}

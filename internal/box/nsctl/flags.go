// Package nsctl builds the clone-flag set from the configured
// namespace list and installs UID/GID maps.
//
// Go has no portable way to call clone(2) directly against a
// hand-rolled stack the way a C/C++ implementation would; the
// idiomatic Go rendition — used by opencontainers/runc's initProcess
// (see the retrieved libcontainer/process_linux.go) — is an *exec.Cmd
// that re-executes /proc/self/exe under a sentinel argv0, with
// SysProcAttr.Cloneflags set to the namespace bitset. The Go runtime's
// forkAndExecInChild performs the equivalent clone(2) under the hood;
// the re-exec target (package boxinit) is the container-side child.
package nsctl

import (
	"fmt"
	"syscall"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
)

// Plan is the namespace controller's derived clone plan: which
// namespaces to create (bitset, composed at clone time) and which to
// join post-clone via setns (path-qualified namespaces).
type Plan struct {
	CloneFlags uintptr
	JoinPaths  map[config.NamespaceKind]string
}

var kindToFlag = map[config.NamespaceKind]uintptr{
	config.NSIPC:     syscall.CLONE_NEWIPC,
	config.NSUTS:     syscall.CLONE_NEWUTS,
	config.NSMount:   syscall.CLONE_NEWNS,
	config.NSPid:     syscall.CLONE_NEWPID,
	config.NSNetwork: syscall.CLONE_NEWNET,
	config.NSUser:    syscall.CLONE_NEWUSER,
	config.NSCgroup:  syscall.CLONE_NEWCGROUP,
}

// BuildPlan composes the clone-flag bitset from the namespace list.
// Composition is commutative: the result depends only on the set of
// kinds present, not their order.
// Duplicate kinds are rejected with a Config error even though
// config.FromSpec already guards against this, since BuildPlan must
// remain correct when called on a namespace list built by hand (e.g.
// in tests).
func BuildPlan(namespaces []config.Namespace) (*Plan, error) {
	plan := &Plan{CloneFlags: syscall.SIGCHLD, JoinPaths: map[config.NamespaceKind]string{}}
	seen := map[config.NamespaceKind]bool{}
	for _, ns := range namespaces {
		if seen[ns.Kind] {
			return nil, boxerr.New(boxerr.Config, fmt.Sprintf("duplicate namespace kind %q", ns.Kind))
		}
		seen[ns.Kind] = true

		flag, ok := kindToFlag[ns.Kind]
		if !ok {
			return nil, boxerr.New(boxerr.Config, fmt.Sprintf("unknown namespace kind %q", ns.Kind))
		}
		if ns.Path != "" {
			plan.JoinPaths[ns.Kind] = ns.Path
			continue
		}
		plan.CloneFlags |= flag
	}
	return plan, nil
}

// Package config derives box's immutable Configuration view from a
// parsed OCI runtime-spec document. The core never re-parses
// config.json itself — that is the OCI-JSON parser collaborator's
// job — it accepts an already-unmarshaled *specs.Spec.
package config

import (
	"fmt"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/mount"
)

// NamespaceKind enumerates the Linux namespace kinds box configures.
type NamespaceKind string

const (
	NSMount   NamespaceKind = "mount"
	NSPid     NamespaceKind = "pid"
	NSNetwork NamespaceKind = "network"
	NSIPC     NamespaceKind = "ipc"
	NSUTS     NamespaceKind = "uts"
	NSUser    NamespaceKind = "user"
	NSCgroup  NamespaceKind = "cgroup"
)

// Namespace is one configured namespace: a kind and an optional path
// to an existing namespace to join instead of creating a new one.
type Namespace struct {
	Kind NamespaceKind
	Path string // non-empty means "join existing namespace at path"
}

// IDMapping is one {host_id, container_id, size} triple.
type IDMapping struct {
	HostID      uint32
	ContainerID uint32
	Size        uint32
}

// Hook is one hook invocation: a path, its args (argv[0] included),
// env, and optional timeout in seconds (0 means wait indefinitely).
type Hook struct {
	Path    string
	Args    []string
	Env     []string
	Timeout int
}

// HookSet holds the six ordered hook-phase lists.
type HookSet struct {
	Prestart         []Hook
	CreateRuntime    []Hook
	CreateContainer  []Hook
	StartContainer   []Hook
	Poststart        []Hook
	Poststop         []Hook
}

// HasCreateRuntime reports whether the createRuntime sync round (the
// request/execute handshake gated on prestart or createRuntime hooks
// being present) needs to happen at all.
func (h HookSet) HasCreateRuntime() bool {
	return len(h.Prestart) > 0 || len(h.CreateRuntime) > 0
}

// HasStartContainer reports whether the startContainer sync round
// needs to happen at all. Both sides of the sync channel must agree
// on this, or one side blocks on (or misreads) a byte the other never
// sends.
func (h HookSet) HasStartContainer() bool {
	return len(h.StartContainer) > 0
}

// Process describes the container's entry process.
type Process struct {
	Args             []string
	Env              []string
	Cwd              string
	UID              uint32
	GID              uint32
	AdditionalGIDs   []uint32
	Terminal         bool
	ConsoleWidth     uint16
	ConsoleHeight    uint16
	Rlimits          []specs.POSIXRlimit
	Capabilities     *specs.LinuxCapabilities
	NoNewPrivileges  bool
	OOMScoreAdj      *int
}

// Root describes the container's root filesystem.
type Root struct {
	Path     string // relative to the bundle
	Readonly bool
}

// Propagation is the rootfs-wide mount propagation setting.
type Propagation string

const (
	PropagationShared     Propagation = "shared"
	PropagationSlave      Propagation = "slave"
	PropagationPrivate    Propagation = "private"
	PropagationUnbindable Propagation = "unbindable"
)

// Container is box's immutable configuration view, derived once from
// the parsed OCI spec and never mutated afterward.
type Container struct {
	OCIVersion         string
	Process            Process
	Root               Root
	Mounts             []mount.Entry
	Namespaces         []Namespace
	UIDMappings        []IDMapping
	GIDMappings        []IDMapping
	Hooks              HookSet
	MaskedPaths        []string
	ReadonlyPaths      []string
	RootfsPropagation  Propagation
	Annotations        map[string]string
}

// FromSpec validates and derives a Container from a parsed OCI spec.
func FromSpec(s *specs.Spec) (*Container, error) {
	if s == nil {
		return nil, boxerr.New(boxerr.Config, "nil spec")
	}
	if !strings.HasPrefix(s.Version, "1.") {
		return nil, boxerr.New(boxerr.Config, fmt.Sprintf("unsupported ociVersion %q", s.Version))
	}
	if s.Process == nil {
		return nil, boxerr.New(boxerr.Config, "process is required")
	}
	if s.Root == nil || s.Root.Path == "" {
		return nil, boxerr.New(boxerr.Config, "root.path is required")
	}

	c := &Container{
		OCIVersion: s.Version,
		Root:       Root{Path: s.Root.Path, Readonly: s.Root.Readonly},
		Annotations: s.Annotations,
	}

	if err := c.fillProcess(s.Process); err != nil {
		return nil, err
	}
	if err := c.fillMounts(s.Mounts); err != nil {
		return nil, err
	}
	if s.Linux != nil {
		if err := c.fillLinux(s.Linux); err != nil {
			return nil, err
		}
	}
	if s.Hooks != nil {
		c.fillHooks(s.Hooks)
	}
	return c, nil
}

func (c *Container) fillProcess(p *specs.Process) error {
	if len(p.Args) == 0 {
		return boxerr.New(boxerr.Config, "process.args must be non-empty")
	}
	seen := map[string]bool{}
	for _, kv := range p.Env {
		k, _, ok := strings.Cut(kv, "=")
		if !ok {
			return boxerr.New(boxerr.Config, fmt.Sprintf("env entry %q is not KEY=VALUE", kv))
		}
		if seen[k] {
			return boxerr.New(boxerr.Config, fmt.Sprintf("duplicate env key %q", k))
		}
		seen[k] = true
	}
	if p.Cwd == "" || !strings.HasPrefix(p.Cwd, "/") {
		return boxerr.New(boxerr.Config, "process.cwd must be an absolute path")
	}

	proc := Process{
		Args:            append([]string(nil), p.Args...),
		Env:             append([]string(nil), p.Env...),
		Cwd:             p.Cwd,
		Terminal:        p.Terminal,
		Rlimits:         p.Rlimits,
		Capabilities:    p.Capabilities,
		NoNewPrivileges: p.NoNewPrivileges,
		OOMScoreAdj:     p.OOMScoreAdj,
	}
	proc.UID = p.User.UID
	proc.GID = p.User.GID
	proc.AdditionalGIDs = append([]uint32(nil), p.User.AdditionalGids...)
	if p.ConsoleSize != nil {
		proc.ConsoleWidth = uint16(p.ConsoleSize.Width)
		proc.ConsoleHeight = uint16(p.ConsoleSize.Height)
	}
	c.Process = proc
	return nil
}

func (c *Container) fillMounts(ms []specs.Mount) error {
	entries := make([]mount.Entry, 0, len(ms))
	for _, m := range ms {
		e, err := mount.FromSpec(m)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	c.Mounts = entries
	return nil
}

func (c *Container) fillLinux(l *specs.Linux) error {
	seen := map[NamespaceKind]bool{}
	for _, ns := range l.Namespaces {
		kind := NamespaceKind(ns.Type)
		switch kind {
		case NSMount, NSPid, NSNetwork, NSIPC, NSUTS, NSUser, NSCgroup:
		default:
			return boxerr.New(boxerr.Config, fmt.Sprintf("unknown namespace kind %q", ns.Type))
		}
		if seen[kind] {
			return boxerr.New(boxerr.Config, fmt.Sprintf("duplicate namespace kind %q", ns.Type))
		}
		seen[kind] = true
		c.Namespaces = append(c.Namespaces, Namespace{Kind: kind, Path: ns.Path})
	}

	for _, m := range l.UIDMappings {
		c.UIDMappings = append(c.UIDMappings, IDMapping{HostID: m.HostID, ContainerID: m.ContainerID, Size: m.Size})
	}
	for _, m := range l.GIDMappings {
		c.GIDMappings = append(c.GIDMappings, IDMapping{HostID: m.HostID, ContainerID: m.ContainerID, Size: m.Size})
	}

	c.MaskedPaths = l.MaskedPaths
	c.ReadonlyPaths = l.ReadonlyPaths
	if l.RootfsPropagation != "" {
		c.RootfsPropagation = Propagation(l.RootfsPropagation)
	} else {
		c.RootfsPropagation = PropagationPrivate
	}
	return nil
}

func (c *Container) fillHooks(h *specs.Hooks) {
	convert := func(hs []specs.Hook) []Hook {
		out := make([]Hook, 0, len(hs))
		for _, hh := range hs {
			timeout := 0
			if hh.Timeout != nil {
				timeout = *hh.Timeout
			}
			out = append(out, Hook{Path: hh.Path, Args: hh.Args, Env: hh.Env, Timeout: timeout})
		}
		return out
	}
	c.Hooks = HookSet{
		Prestart:        convert(h.Prestart),
		CreateRuntime:   convert(h.CreateRuntime),
		CreateContainer: convert(h.CreateContainer),
		StartContainer:  convert(h.StartContainer),
		Poststart:       convert(h.Poststart),
		Poststop:        convert(h.Poststop),
	}
}

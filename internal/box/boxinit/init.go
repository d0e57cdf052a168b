// Package boxinit is the container-side child's entry point: the
// re-exec target nsctl.Launch starts under the box-init sentinel argv.
// It runs the child half of the run flow: close inherited descriptors,
// drive the sync protocol, configure mounts, run the local hook
// phases, pivot root, and finally exec the configured process.
package boxinit

import (
	"context"
	"encoding/gob"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxenv"
	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/boxlog"
	"github.com/linyaps-box/box/internal/box/config"
	"github.com/linyaps-box/box/internal/box/fdutil"
	"github.com/linyaps-box/box/internal/box/hook"
	"github.com/linyaps-box/box/internal/box/mountengine"
	"github.com/linyaps-box/box/internal/box/nsctl"
	"github.com/linyaps-box/box/internal/box/pivot"
	"github.com/linyaps-box/box/internal/box/syncchan"
)

// syncFD and configFD are the well-known descriptor numbers
// nsctl.Launch hands the child across the clone, in the order its
// ExtraFiles slice lists them.
const (
	syncFD   = 3
	configFD = 4
)

// Payload is what the parent sends down the config pipe: the already
// derived, already validated configuration, plus the PTY slave fd
// indicator so the child knows whether to expect one on the sync
// socket.
type Payload struct {
	Container  config.Container
	BundlePath string
	WantPTY    bool
}

// Main runs the entire container-side sequence and never returns on
// success: the final step replaces the process image with the
// configured command. It returns only on error, in which case the
// caller (cmd/box's main) must exit non-zero, which aborts the sync
// socket on the parent side.
func Main() error {
	boxenv.Load()
	boxlog.SetLevel(boxenv.Get().LogLevel, false)
	boxlog.SetForceStderr(boxenv.Get().LogForceStderr)

	if boxenv.Get().TraceMe {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, unix.SIGUSR1)
		<-sigs
		signal.Stop(sigs)
	}

	syncFile := os.NewFile(uintptr(syncFD), "box-sync-child")
	configFile := os.NewFile(uintptr(configFD), "box-config-pipe")

	var payload Payload
	if err := gob.NewDecoder(configFile).Decode(&payload); err != nil {
		return boxerr.Wrap(boxerr.Protocol, "decode container configuration", err)
	}
	configFile.Close()

	endpoint, err := syncchan.NewEndpoint(syncFile)
	if err != nil {
		return err
	}
	defer endpoint.Close()

	if err := closeInheritedDescriptors(); err != nil {
		return err
	}

	c := &payload.Container

	if err := endpoint.Send(syncchan.RequestConfigureNamespace); err != nil {
		return err
	}
	if err := endpoint.Expect(syncchan.NamespaceConfigured); err != nil {
		return err
	}

	plan, err := nsctl.BuildPlan(c.Namespaces)
	if err != nil {
		return err
	}
	if err := plan.JoinNamespaces(); err != nil {
		return err
	}

	if payload.WantPTY {
		slaveFD, err := pivot.RecvFD(endpoint.File())
		if err != nil {
			return err
		}
		if err := pivot.WireStdio(slaveFD, slaveFD, slaveFD); err != nil {
			return err
		}
		if err := unix.IoctlSetInt(0, unix.TIOCSCTTY, 0); err != nil {
			boxlog.Debugf("TIOCSCTTY failed: %v", err)
		}
	}

	if err := pivot.PrivatizeMountNamespace(c.RootfsPropagation); err != nil {
		return err
	}

	bundleFD, err := fdutil.Open(payload.BundlePath, unix.O_PATH|unix.O_DIRECTORY, 0)
	if err != nil {
		return err
	}
	defer bundleFD.Close()

	rootfs, err := pivot.OpenRootfs(bundleFD, c.Root.Path)
	if err != nil {
		return err
	}
	defer rootfs.Close()

	engine := mountengine.New(rootfs, c.Mounts)
	if err := engine.Run(); err != nil {
		return err
	}
	if err := engine.ApplyMaskedPaths(c.MaskedPaths); err != nil {
		return err
	}
	if err := engine.ApplyReadonlyPaths(c.ReadonlyPaths); err != nil {
		return err
	}

	if c.Hooks.HasCreateRuntime() {
		if err := endpoint.Send(syncchan.RequestCreateRuntimeHooks); err != nil {
			return err
		}
		if err := endpoint.Expect(syncchan.CreateRuntimeHooksExecuted); err != nil {
			return err
		}
	}

	state := hookState(c, payload)
	if err := hook.RunPhase(context.Background(), c.Hooks.CreateContainer, state); err != nil {
		return err
	}
	if err := endpoint.Send(syncchan.CreateContainerHooksExecuted); err != nil {
		return err
	}

	if err := pivot.Pivot(rootfs); err != nil {
		return err
	}

	if err := hook.RunPhase(context.Background(), c.Hooks.StartContainer, state); err != nil {
		return err
	}
	if c.Hooks.HasStartContainer() {
		if err := endpoint.Send(syncchan.StartContainerHooksExecuted); err != nil {
			return err
		}
	}

	return execFinal(c, endpoint)
}

func hookState(c *config.Container, payload Payload) hook.State {
	return hook.State{
		OCIVersion:  c.OCIVersion,
		Status:      "creating",
		Pid:         os.Getpid(),
		Bundle:      payload.BundlePath,
		Annotations: c.Annotations,
	}
}

// closeInheritedDescriptors closes every open fd above stderr except
// the sync channel and config pipe.
func closeInheritedDescriptors() error {
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "list inherited descriptors", err)
	}
	keep := map[int]bool{0: true, 1: true, 2: true, syncFD: true, configFD: true}
	for _, e := range entries {
		n, err := strconv.Atoi(e.Name())
		if err != nil || keep[n] {
			continue
		}
		unix.Close(n)
	}
	return nil
}

// execFinal performs the final chdir/drop-groups/setgid/setuid/execvpe
// sequence, closing the sync channel just before exec so the parent's
// wait-for-close observes the orderly-close "proceed" signal exactly
// when the new image takes over.
func execFinal(c *config.Container, endpoint *syncchan.Endpoint) error {
	if err := unix.Chdir(c.Process.Cwd); err != nil {
		return boxerr.Wrap(boxerr.Io, "chdir "+c.Process.Cwd, err)
	}

	gids := make([]int, 0, len(c.Process.AdditionalGIDs))
	for _, g := range c.Process.AdditionalGIDs {
		gids = append(gids, int(g))
	}
	if err := unix.Setgroups(gids); err != nil {
		return boxerr.Wrap(boxerr.Io, "setgroups", err)
	}
	if err := unix.Setresgid(int(c.Process.GID), int(c.Process.GID), int(c.Process.GID)); err != nil {
		return boxerr.Wrap(boxerr.Io, "setgid", err)
	}
	if err := unix.Setresuid(int(c.Process.UID), int(c.Process.UID), int(c.Process.UID)); err != nil {
		return boxerr.Wrap(boxerr.Io, "setuid", err)
	}

	if c.Process.NoNewPrivileges {
		if err := unix.Prctl(unix.PR_SET_NO_NEW_PRIVS, 1, 0, 0, 0); err != nil {
			return boxerr.Wrap(boxerr.Io, "set no_new_privs", err)
		}
	}

	bin, err := resolveExecutable(c.Process.Args[0])
	if err != nil {
		return err
	}

	endpoint.Close()

	env := append([]string(nil), c.Process.Env...)
	if err := syscall.Exec(bin, c.Process.Args, env); err != nil {
		return boxerr.Wrap(boxerr.Io, "exec "+bin, err)
	}
	return nil
}

func resolveExecutable(name string) (string, error) {
	if len(name) > 0 && name[0] == '/' {
		return name, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", boxerr.Wrap(boxerr.Config, "resolve executable "+name, err)
	}
	return path, nil
}

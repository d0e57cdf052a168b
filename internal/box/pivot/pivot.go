// Package pivot implements the pivot-root and stdio-wiring sequence,
// run inside the container-side process after mounts are assembled.
package pivot

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
	"github.com/linyaps-box/box/internal/box/fdutil"
)

// PrivatizeMountNamespace remounts "/" REC|PRIVATE, isolating mount
// events from the host before any container mount is configured, and
// then applies the configured rootfs-wide propagation. It runs before
// any configured mount rather than after, so that none of those
// mounts can leak their propagation to the host mount namespace.
func PrivatizeMountNamespace(propagation config.Propagation) error {
	if err := unix.Mount("", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "privatize mount namespace", err)
	}
	var flag uintptr
	switch propagation {
	case config.PropagationShared:
		flag = unix.MS_SHARED
	case config.PropagationSlave:
		flag = unix.MS_SLAVE
	case config.PropagationUnbindable:
		flag = unix.MS_UNBINDABLE
	default:
		return nil // already private from the remount above
	}
	if err := unix.Mount("", "/", "", flag|unix.MS_REC, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "apply rootfs propagation", err)
	}
	return nil
}

// OpenRootfs resolves and opens the rootfs path via the confined
// resolver, rooted at the bundle directory.
func OpenRootfs(bundleFD *fdutil.FD, rootfsRelPath string) (*fdutil.FD, error) {
	return fdutil.OpenAt(bundleFD, rootfsRelPath, unix.O_PATH|unix.O_DIRECTORY, 0)
}

// Pivot performs the bind-mount-onto-self / pivot_root / detach-old-root
// sequence.
func Pivot(rootfs *fdutil.FD) error {
	rootfsPath, err := rootfs.CurrentPath()
	if err != nil {
		return err
	}

	if err := unix.Mount(rootfsPath, rootfsPath, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "bind rootfs onto itself", err)
	}

	f, err := os.Open(rootfsPath)
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "open rootfs for fchdir", err)
	}
	defer f.Close()
	if err := unix.Fchdir(int(f.Fd())); err != nil {
		return boxerr.Wrap(boxerr.Io, "fchdir rootfs", err)
	}

	if err := unix.PivotRoot(".", "."); err != nil {
		return boxerr.Wrap(boxerr.Io, "pivot_root", err)
	}

	for {
		if err := unix.Unmount(".", unix.MNT_DETACH); err != nil {
			if err == unix.EINVAL {
				break
			}
			return boxerr.Wrap(boxerr.Io, "detach old root", err)
		}
	}

	if err := unix.Chdir("/"); err != nil {
		return boxerr.Wrap(boxerr.Io, "chdir /", err)
	}
	return nil
}

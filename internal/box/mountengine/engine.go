// Package mountengine assembles the container's private filesystem
// view: it runs inside the container-side process, after the mount
// namespace has been configured and before pivot-root. Every mount
// target is always addressed through its /proc/self/fd/N proc path
// (fdutil.FD.ProcPath), never through a user-supplied path string
// handed straight to the kernel — this is what keeps a symlink
// planted inside the rootfs from redirecting a mount onto a host
// path.
package mountengine

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/boxlog"
	"github.com/linyaps-box/box/internal/box/fdutil"
	"github.com/linyaps-box/box/internal/box/mount"
)

// Engine owns the rootfs directory descriptor and the ordered mount
// list for one container setup pass.
type Engine struct {
	Root    *fdutil.FD
	Entries []mount.Entry

	deferredRemounts []deferredRemount
}

type deferredRemount struct {
	destProcPath string
	data         string
}

// New builds an Engine bound to the given rootfs descriptor.
func New(root *fdutil.FD, entries []mount.Entry) *Engine {
	return &Engine{Root: root, Entries: entries}
}

// Run executes the full mount sequence: configured entries, OCI
// default filesystems/devices for any that are missing, then the
// deferred read-only tmpfs remounts.
func (e *Engine) Run() error {
	for _, entry := range e.Entries {
		if err := e.mountOne(entry); err != nil {
			return err
		}
	}
	if err := e.applyDefaults(); err != nil {
		return err
	}
	if err := e.applyDefaultDevices(); err != nil {
		return err
	}
	for _, dr := range e.deferredRemounts {
		if err := unix.Mount("", dr.destProcPath, "tmpfs", unix.MS_REMOUNT|unix.MS_RDONLY, dr.data); err != nil {
			return boxerr.Wrap(boxerr.Io, "deferred tmpfs remount", err)
		}
	}
	return nil
}

func (e *Engine) mountOne(entry mount.Entry) error {
	needsDir := mount.NeedsDirSource(entry.Type)
	if entry.IsBind() {
		st, err := fdutil.Lstat(entry.Source)
		if err != nil {
			return boxerr.Wrap(boxerr.Io, "lstat source "+entry.Source, err)
		}
		if st.Mode&unix.S_IFMT == unix.S_IFLNK && entry.Ext&mount.ExtCopySymlink != 0 {
			return e.copySymlink(entry)
		}
		needsDir = st.Mode&unix.S_IFMT == unix.S_IFDIR
	}

	destFD, err := e.ensureDestination(entry.Destination, needsDir)
	if err != nil {
		return err
	}
	defer destFD.Close()
	destProc := destFD.ProcPath()

	switch {
	case entry.IsBind():
		return e.mountBind(entry, destProc)
	case entry.Type == "tmpfs" && entry.Flags&unix.MS_RDONLY != 0:
		flags := entry.Flags &^ unix.MS_RDONLY
		if err := unix.Mount(valueOr(entry.Source, "tmpfs"), destProc, "tmpfs", flags, entry.Data); err != nil {
			return boxerr.Wrap(boxerr.Io, "mount tmpfs "+entry.Destination, err)
		}
		e.deferredRemounts = append(e.deferredRemounts, deferredRemount{destProcPath: destProc, data: entry.Data})
		return nil
	default:
		return e.mountDirect(entry, destProc)
	}
}

func (e *Engine) mountBind(entry mount.Entry, destProc string) error {
	srcFD, err := fdutil.Open(entry.Source, unix.O_PATH, 0)
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "open bind source "+entry.Source, err)
	}
	defer srcFD.Close()

	if err := unix.Mount(srcFD.ProcPath(), destProc, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "bind mount "+entry.Destination, err)
	}
	nonBind := entry.Flags &^ unix.MS_BIND
	if nonBind != 0 || entry.Data != "" {
		if err := unix.Mount("", destProc, "", unix.MS_BIND|unix.MS_REMOUNT|nonBind, entry.Data); err != nil {
			return boxerr.Wrap(boxerr.Io, "remount bind "+entry.Destination, err)
		}
	}
	if entry.Propagation != 0 {
		if err := unix.Mount("", destProc, "", entry.Propagation, ""); err != nil {
			return boxerr.Wrap(boxerr.Io, "propagation "+entry.Destination, err)
		}
	}
	return nil
}

func (e *Engine) mountDirect(entry mount.Entry, destProc string) error {
	err := unix.Mount(valueOr(entry.Source, entry.Type), destProc, entry.Type, entry.Flags, entry.Data)
	if err == nil {
		return nil
	}
	switch {
	case entry.Type == "sysfs" && err == unix.EPERM:
		boxlog.Debugf("sysfs mount denied (rootless), falling back to recursive bind of host /sys")
		return e.recursiveBindFallback("/sys", destProc)
	case entry.Type == "mqueue" && err != nil:
		boxlog.Debugf("mqueue mount failed, falling back to bind of host /dev/mqueue: %v", err)
		return e.recursiveBindFallback("/dev/mqueue", destProc)
	default:
		return boxerr.Wrap(boxerr.Io, fmt.Sprintf("mount %s on %s", entry.Type, entry.Destination), err)
	}
}

func (e *Engine) recursiveBindFallback(hostSource, destProc string) error {
	srcFD, err := fdutil.Open(hostSource, unix.O_PATH, 0)
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "open fallback source "+hostSource, err)
	}
	defer srcFD.Close()
	if err := unix.Mount(srcFD.ProcPath(), destProc, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "fallback bind "+hostSource, err)
	}
	return nil
}

func (e *Engine) copySymlink(entry mount.Entry) error {
	target, err := os.Readlink(entry.Source)
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "readlink "+entry.Source, err)
	}
	if err := e.ensureParentDir(entry.Destination); err != nil {
		return err
	}
	parent, base := splitPath(entry.Destination)
	parentFD, err := fdutil.Mkdir(e.Root, parent, 0o755)
	if err != nil {
		return err
	}
	defer parentFD.Close()
	parentPath, err := parentFD.CurrentPath()
	if err != nil {
		return err
	}
	dest := parentPath + "/" + base
	_ = os.Remove(dest)
	if err := os.Symlink(target, dest); err != nil {
		return boxerr.Wrap(boxerr.Io, "copy-symlink "+entry.Destination, err)
	}
	return nil
}

// ensureDestination creates, if absent, the destination node as the
// correct type (directory or regular-file stub) and returns a
// descriptor to it, refusing to traverse any symlink that would
// escape the rootfs.
func (e *Engine) ensureDestination(dest string, wantDir bool) (*fdutil.FD, error) {
	if wantDir {
		return fdutil.Mkdir(e.Root, dest, 0o755)
	}
	if err := e.ensureParentDir(dest); err != nil {
		return nil, err
	}
	parent, base := splitPath(dest)
	parentFD, err := fdutil.Mkdir(e.Root, parent, 0o755)
	if err != nil {
		return nil, err
	}
	defer parentFD.Close()
	return fdutil.Touch(parentFD, base, unix.O_PATH, 0o644)
}

func (e *Engine) ensureParentDir(dest string) error {
	parent, _ := splitPath(dest)
	fd, err := fdutil.Mkdir(e.Root, parent, 0o755)
	if err != nil {
		return err
	}
	return fd.Close()
}

func splitPath(p string) (dir, base string) {
	i := len(p) - 1
	for i >= 0 && p[i] != '/' {
		i--
	}
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

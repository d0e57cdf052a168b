package mountengine

import (
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/fdutil"
)

// ApplyMaskedPaths hides each configured path from the container: a
// regular file is bind-mounted over with /dev/null, a directory is
// covered by a fresh empty read-only tmpfs mount, matching the
// behavior OCI runtimes converge on for masked paths even though the
// mechanism itself is left to the implementation.
func (e *Engine) ApplyMaskedPaths(paths []string) error {
	for _, p := range paths {
		if err := e.maskOne(p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) maskOne(path string) error {
	st, err := fdutil.FstatAt(e.Root, path, true)
	if err != nil {
		// Path doesn't exist in the rootfs; nothing to mask.
		return nil
	}

	destFD, err := e.ensureDestination(path, st.Mode&unix.S_IFMT == unix.S_IFDIR)
	if err != nil {
		return err
	}
	defer destFD.Close()
	destProc := destFD.ProcPath()

	if st.Mode&unix.S_IFMT == unix.S_IFDIR {
		if err := unix.Mount("tmpfs", destProc, "tmpfs", unix.MS_RDONLY, "mode=000"); err != nil {
			return boxerr.Wrap(boxerr.Io, "mask dir "+path, err)
		}
		return nil
	}

	srcFD, err := fdutil.Open("/dev/null", unix.O_PATH, 0)
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "open /dev/null", err)
	}
	defer srcFD.Close()
	if err := unix.Mount(srcFD.ProcPath(), destProc, "", unix.MS_BIND, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "mask file "+path, err)
	}
	return nil
}

// ApplyReadonlyPaths bind-mounts each path onto itself read-only.
func (e *Engine) ApplyReadonlyPaths(paths []string) error {
	for _, p := range paths {
		if err := e.readonlyOne(p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) readonlyOne(path string) error {
	st, err := fdutil.FstatAt(e.Root, path, true)
	if err != nil {
		return nil
	}
	destFD, err := e.ensureDestination(path, st.Mode&unix.S_IFMT == unix.S_IFDIR)
	if err != nil {
		return err
	}
	defer destFD.Close()
	destProc := destFD.ProcPath()

	if err := unix.Mount(destProc, destProc, "", unix.MS_BIND|unix.MS_REC, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "readonly self-bind "+path, err)
	}
	if err := unix.Mount("", destProc, "", unix.MS_BIND|unix.MS_REMOUNT|unix.MS_RDONLY|unix.MS_REC, ""); err != nil {
		return boxerr.Wrap(boxerr.Io, "readonly remount "+path, err)
	}
	return nil
}

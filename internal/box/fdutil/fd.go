// Package fdutil provides owning wrappers around kernel file
// descriptors and the confined path-resolution helpers the mount
// engine and pivot-root sequence rely on for safety.
package fdutil

import (
	"fmt"
	"os"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// FD is an exclusively owned kernel file descriptor. It is closed
// exactly once; the zero value is not usable. FDs are moved, never
// copied — callers that need a second reference must call Dup.
type FD struct {
	fd     int
	closed bool
}

// New wraps a raw file descriptor, taking ownership of it.
func New(raw int) *FD { return &FD{fd: raw} }

// Int returns the raw descriptor number. Valid only while the FD is open.
func (f *FD) Int() int { return f.fd }

// ProcPath returns the /proc/self/fd/N view of this descriptor, which
// the mount engine uses to address mount sources/destinations without
// ever handing the kernel a user-controlled path string directly.
func (f *FD) ProcPath() string { return fmt.Sprintf("/proc/self/fd/%d", f.fd) }

// CurrentPath resolves what path the descriptor currently refers to,
// via readlink on its proc path. The result can change if the
// underlying file is moved; it is a snapshot, not a handle.
func (f *FD) CurrentPath() (string, error) {
	return os.Readlink(f.ProcPath())
}

// Dup duplicates the descriptor into a new, independently owned FD.
func (f *FD) Dup() (*FD, error) {
	nfd, err := unix.FcntlInt(uintptr(f.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "dup fd", err)
	}
	return New(nfd), nil
}

// Close releases the descriptor. Safe to call more than once.
func (f *FD) Close() error {
	if f.closed || f.fd < 0 {
		return nil
	}
	f.closed = true
	return unix.Close(f.fd)
}

// Open wraps open(2).
func Open(path string, flags int, mode uint32) (*FD, error) {
	fd, err := unix.Open(path, flags, mode)
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "open "+path, err)
	}
	return New(fd), nil
}

// OpenAt resolves path confined to root's subtree and opens it.
//
// It first attempts openat2 with RESOLVE_IN_ROOT, which asks the
// kernel itself to refuse any resolution step that would escape
// root's subtree via "..", an absolute symlink, or a bind mount
// boundary. On ENOSYS/EINVAL/EPERM (older kernels, or sandboxed
// situations where openat2 is filtered) it falls back to openat(2)
// after stripping any leading "/" from path. That fallback open is not
// confined to root: symlinks are followed as openat(2) follows them.
// filepath-securejoin is consulted first only so that a path it cannot
// resolve under root's current path (e.g. a symlink loop) fails early;
// its result is not used for the open.
func OpenAt(root *FD, path string, flags int, mode uint32) (*FD, error) {
	for {
		fd, err := unix.Openat2(root.fd, path, &unix.OpenHow{
			Flags:   uint64(flags),
			Mode:    uint64(mode),
			Resolve: unix.RESOLVE_IN_ROOT,
		})
		switch err {
		case nil:
			return New(fd), nil
		case unix.EAGAIN, unix.EINTR:
			continue
		case unix.ENOSYS, unix.EINVAL, unix.EPERM:
			return openAtFallback(root, path, flags, mode)
		default:
			return nil, boxerr.Wrap(boxerr.Io, "openat2 "+path, err)
		}
	}
}

func openAtFallback(root *FD, path string, flags int, mode uint32) (*FD, error) {
	clean := strings.TrimPrefix(path, "/")
	rootPath, err := root.CurrentPath()
	if err == nil {
		if _, lerr := securejoin.SecureJoin(rootPath, clean); lerr != nil {
			return nil, boxerr.Wrap(boxerr.Io, "securejoin "+path, lerr)
		}
	}
	fd, err := unix.Openat(root.fd, clean, flags, mode)
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "openat "+path, err)
	}
	return New(fd), nil
}

// Touch creates (if absent) and opens a regular file relative to dir.
func Touch(dir *FD, name string, flags int, mode uint32) (*FD, error) {
	if mode == 0 {
		mode = 0o644
	}
	return OpenAt(dir, name, flags|unix.O_CREAT, mode)
}

// Mkdir walks path component by component under root, creating
// directories as needed (EEXIST is not fatal), and returns an O_PATH
// descriptor to the deepest component.
func Mkdir(root *FD, path string, mode uint32) (*FD, error) {
	if mode == 0 {
		mode = 0o755
	}
	cur, err := root.Dup()
	if err != nil {
		return nil, err
	}
	clean := strings.Trim(path, "/")
	if clean == "" {
		return cur, nil
	}
	parts := strings.Split(clean, "/")
	for i, part := range parts {
		if part == "" || part == "." {
			continue
		}
		if err := unix.Mkdirat(cur.fd, part, mode); err != nil && err != unix.EEXIST {
			cur.Close()
			return nil, boxerr.Wrap(boxerr.Io, "mkdirat "+part, err)
		}
		flags := unix.O_PATH | unix.O_DIRECTORY
		if i == len(parts)-1 {
			flags |= unix.O_NOFOLLOW
		}
		next, err := OpenAt(cur, part, flags, 0)
		cur.Close()
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// Fstat wraps fstat(2).
func Fstat(f *FD) (unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Fstat(f.fd, &st); err != nil {
		return st, boxerr.Wrap(boxerr.Io, "fstat", err)
	}
	return st, nil
}

// FstatAt wraps fstatat(2); when follow is false it passes
// AT_SYMLINK_NOFOLLOW, matching lstat.
func FstatAt(dir *FD, path string, follow bool) (unix.Stat_t, error) {
	var st unix.Stat_t
	flags := 0
	if !follow {
		flags = unix.AT_SYMLINK_NOFOLLOW
	}
	if err := unix.Fstatat(dir.fd, path, &st, flags); err != nil {
		return st, boxerr.Wrap(boxerr.Io, "fstatat "+path, err)
	}
	return st, nil
}

// Lstat wraps lstat(2) on a plain host path (used before the mount
// namespace/rootfs exist, e.g. to inspect a bind-mount's host source).
func Lstat(path string) (unix.Stat_t, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return st, boxerr.Wrap(boxerr.Io, "lstat "+path, err)
	}
	return st, nil
}

// Statfs wraps statfs(2), used to test super-magic of default mountpoints.
func Statfs(path string) (unix.Statfs_t, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return st, boxerr.Wrap(boxerr.Io, "statfs "+path, err)
	}
	return st, nil
}

// ReadSymlink reads the target of a symlink relative to dir, via its
// /proc/self/fd/N proc path rather than a raw readlinkat on a
// user-controlled path string.
func ReadSymlink(dir *FD, path string) (string, error) {
	fd, err := OpenAt(dir, path, unix.O_PATH|unix.O_NOFOLLOW, 0)
	if err != nil {
		return "", err
	}
	defer fd.Close()
	target, err := os.Readlink(fd.ProcPath())
	if err != nil {
		return "", boxerr.Wrap(boxerr.Io, "readlink "+path, err)
	}
	return target, nil
}

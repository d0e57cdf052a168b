package mountengine

import (
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/fdutil"
)

// Linux super-magic constants used to test whether a default
// mountpoint is already populated.
const (
	procSuperMagic  = 0x9fa0
	sysfsMagic      = 0x62656572
	tmpfsMagic      = 0x01021994
	devptsSuperMagic = 0x1cd1
)

type defaultMount struct {
	path       string
	fsType     string
	flags      uintptr
	data       string
	wantMagic  int64
}

var defaultMounts = []defaultMount{
	{path: "/proc", fsType: "proc", flags: unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV, wantMagic: procSuperMagic},
	{path: "/sys", fsType: "sysfs", flags: unix.MS_NOSUID | unix.MS_NOEXEC | unix.MS_NODEV, wantMagic: sysfsMagic},
	{path: "/dev", fsType: "tmpfs", flags: unix.MS_NOSUID | unix.MS_STRICTATIME, data: "mode=755", wantMagic: tmpfsMagic},
	{path: "/dev/pts", fsType: "devpts", flags: unix.MS_NOSUID | unix.MS_NOEXEC, data: "newinstance,ptmxmode=0666,mode=0620", wantMagic: devptsSuperMagic},
	{path: "/dev/shm", fsType: "tmpfs", flags: unix.MS_NOSUID | unix.MS_NODEV, data: "mode=1777", wantMagic: tmpfsMagic},
}

// applyDefaults mounts the OCI default filesystems for any of
// /proc, /sys, /dev, /dev/pts, /dev/shm not already populated.
func (e *Engine) applyDefaults() error {
	for _, dm := range defaultMounts {
		populated, err := e.isPopulated(dm.path, dm.wantMagic)
		if err != nil {
			return err
		}
		if populated {
			continue
		}
		destFD, err := e.ensureDestination(dm.path, true)
		if err != nil {
			return err
		}
		destProc := destFD.ProcPath()
		err = unix.Mount(dm.fsType, destProc, dm.fsType, dm.flags, dm.data)
		destFD.Close()
		if err != nil {
			if dm.fsType == "sysfs" && err == unix.EPERM {
				if ferr := e.recursiveBindFallback("/sys", destProc); ferr != nil {
					return ferr
				}
				continue
			}
			return boxerr.Wrap(boxerr.Io, "default mount "+dm.path, err)
		}
	}
	return nil
}

func (e *Engine) isPopulated(path string, wantMagic int64) (bool, error) {
	parent, base := splitPath(path)
	parentFD, err := fdutil.Mkdir(e.Root, parent, 0o755)
	if err != nil {
		return false, err
	}
	defer parentFD.Close()

	childFD, err := fdutil.OpenAt(parentFD, base, unix.O_PATH|unix.O_DIRECTORY, 0)
	if err != nil {
		// Not created yet at all, definitely not populated.
		return false, nil
	}
	defer childFD.Close()

	var st unix.Statfs_t
	if err := unix.Statfs(childFD.ProcPath(), &st); err != nil {
		return false, boxerr.Wrap(boxerr.Io, "statfs "+path, err)
	}
	return int64(st.Type) == wantMagic, nil
}

type defaultDevice struct {
	name        string
	major, minor uint32
	mode        uint32
}

var defaultDevices = []defaultDevice{
	{name: "null", major: 1, minor: 3, mode: 0o666},
	{name: "zero", major: 1, minor: 5, mode: 0o666},
	{name: "full", major: 1, minor: 7, mode: 0o666},
	{name: "random", major: 1, minor: 8, mode: 0o666},
	{name: "urandom", major: 1, minor: 9, mode: 0o666},
	{name: "tty", major: 5, minor: 0, mode: 0o666},
}

// applyDefaultDevices creates /dev/{null,zero,full,random,urandom,tty}
// via mknod, falling back to a recursive bind of the host device node
// when mknod is denied.
func (e *Engine) applyDefaultDevices() error {
	devDirFD, err := fdutil.Mkdir(e.Root, "/dev", 0o755)
	if err != nil {
		return err
	}
	defer devDirFD.Close()
	devDirPath, err := devDirFD.CurrentPath()
	if err != nil {
		return err
	}

	for _, d := range defaultDevices {
		dev := int(unix.Mkdev(d.major, d.minor))
		path := devDirPath + "/" + d.name
		err := unix.Mknod(path, unix.S_IFCHR|d.mode, dev)
		if err == nil || err == unix.EEXIST {
			continue
		}
		if err != unix.EPERM {
			return boxerr.Wrap(boxerr.Io, "mknod /dev/"+d.name, err)
		}
		destFD, err := fdutil.Touch(devDirFD, d.name, unix.O_PATH, 0o644)
		if err != nil {
			return err
		}
		ferr := e.recursiveBindFallback("/dev/"+d.name, destFD.ProcPath())
		destFD.Close()
		if ferr != nil {
			return ferr
		}
	}
	return nil
}

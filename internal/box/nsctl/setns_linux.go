package nsctl

import (
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/config"
)

var kindToSetnsFlag = map[config.NamespaceKind]uintptr{
	config.NSIPC:     unix.CLONE_NEWIPC,
	config.NSUTS:     unix.CLONE_NEWUTS,
	config.NSMount:   unix.CLONE_NEWNS,
	config.NSPid:     unix.CLONE_NEWPID,
	config.NSNetwork: unix.CLONE_NEWNET,
	config.NSUser:    unix.CLONE_NEWUSER,
	config.NSCgroup:  unix.CLONE_NEWCGROUP,
}

// JoinNamespaces enters each path-qualified namespace in the plan via
// setns(2), run from inside the container-side child after clone.
func (p *Plan) JoinNamespaces() error {
	for kind, path := range p.JoinPaths {
		flag := kindToSetnsFlag[kind]
		fd, err := unix.Open(path, unix.O_RDONLY, 0)
		if err != nil {
			return boxerr.Wrap(boxerr.Io, "open namespace "+path, err)
		}
		err = unix.Setns(fd, int(flag))
		unix.Close(fd)
		if err != nil {
			return boxerr.Wrap(boxerr.Io, "setns "+string(kind), err)
		}
	}
	return nil
}

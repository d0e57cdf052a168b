package pivot

import (
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// HostPTY is the runtime-side half of an allocated pseudo-terminal.
// Slave is kept open only long enough to pass its fd to the
// container-side child via SendFD; Master stays on the runtime side
// for the lifetime of the container for I/O forwarding.
type HostPTY struct {
	Master *os.File
	Slave  *os.File
}

// AllocatePTY opens /dev/ptmx and its paired slave, for terminal-
// attached runs: a PTY is allocated on the runtime side when the
// process is configured with a terminal.
func AllocatePTY() (*HostPTY, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "allocate pty", err)
	}
	return &HostPTY{Master: master, Slave: slave}, nil
}

// SendFD passes fd to the peer across a SOCK_SEQPACKET/SOCK_STREAM
// unix socket via SCM_RIGHTS, used to hand the container-side child a
// PTY slave or inherited stdio fd opened on the runtime side: the
// slave fd crosses the sync socket as an SCM_RIGHTS ancillary
// message.
func SendFD(conn *os.File, fd int) error {
	rights := unix.UnixRights(fd)
	if err := unix.Sendmsg(int(conn.Fd()), []byte{0}, rights, nil, 0); err != nil {
		return boxerr.Wrap(boxerr.Io, "sendmsg fd", err)
	}
	return nil
}

// RecvFD receives a single fd sent by SendFD.
func RecvFD(conn *os.File) (int, error) {
	buf := make([]byte, 1)
	oob := make([]byte, unix.CmsgSpace(4))
	_, oobn, _, _, err := unix.Recvmsg(int(conn.Fd()), buf, oob, 0)
	if err != nil {
		return -1, boxerr.Wrap(boxerr.Io, "recvmsg fd", err)
	}
	msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return -1, boxerr.Wrap(boxerr.Io, "parse control message", err)
	}
	if len(msgs) == 0 {
		return -1, boxerr.New(boxerr.Protocol, "no fd in control message")
	}
	fds, err := unix.ParseUnixRights(&msgs[0])
	if err != nil {
		return -1, boxerr.Wrap(boxerr.Io, "parse unix rights", err)
	}
	if len(fds) == 0 {
		return -1, boxerr.New(boxerr.Protocol, "empty fd list in control message")
	}
	return fds[0], nil
}

// WireStdio dup2's fds onto 0/1/2 inside the container-side child,
// replacing whatever descriptors the clone inherited.
func WireStdio(stdin, stdout, stderr int) error {
	pairs := []struct{ from, to int }{
		{stdin, 0},
		{stdout, 1},
		{stderr, 2},
	}
	for _, p := range pairs {
		if p.from == p.to {
			continue
		}
		if err := unix.Dup3(p.from, p.to, 0); err != nil {
			return boxerr.Wrap(boxerr.Io, "wire stdio fd", err)
		}
	}
	return nil
}

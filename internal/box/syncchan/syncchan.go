// Package syncchan implements the sync channel: a length-prefixed —
// here, fixed one-byte — control protocol over a SOCK_SEQPACKET socket
// pair, carrying the entire happens-before edge between the
// runtime-side parent and the container-side child. The raw socket fd
// is wrapped as a *os.File / net.Conn so it can be handed across the
// clone/exec boundary as an ordinary inherited descriptor.
package syncchan

import (
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// Message is the one-byte sync protocol enum.
type Message byte

const (
	RequestConfigureNamespace Message = iota + 1
	NamespaceConfigured
	RequestCreateRuntimeHooks
	CreateRuntimeHooksExecuted
	CreateContainerHooksExecuted
	StartContainerHooksExecuted
)

func (m Message) String() string {
	switch m {
	case RequestConfigureNamespace:
		return "REQUEST_CONFIGURE_NAMESPACE"
	case NamespaceConfigured:
		return "NAMESPACE_CONFIGURED"
	case RequestCreateRuntimeHooks:
		return "REQUEST_CREATERUNTIME_HOOKS"
	case CreateRuntimeHooksExecuted:
		return "CREATE_RUNTIME_HOOKS_EXECUTED"
	case CreateContainerHooksExecuted:
		return "CREATE_CONTAINER_HOOKS_EXECUTED"
	case StartContainerHooksExecuted:
		return "START_CONTAINER_HOOKS_EXECUTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(m))
	}
}

// Pair holds both endpoints of the socketpair; Parent and Child hold the
// respective raw files before fork, after which each process keeps
// only the endpoint relevant to it and closes the other.
type Pair struct {
	Parent *os.File
	Child  *os.File
}

// New creates a SOCK_SEQPACKET socket pair. Call this before cloning
// the container-side process; the child inherits Child across exec
// (CLOEXEC is cleared on the fd the child keeps by the caller, via
// os.File semantics on the inherited fd list), the parent keeps Parent.
func New() (*Pair, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_SEQPACKET|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "socketpair", err)
	}
	return &Pair{
		Parent: os.NewFile(uintptr(fds[0]), "box-sync-parent"),
		Child:  os.NewFile(uintptr(fds[1]), "box-sync-child"),
	}, nil
}

// Endpoint is a single sync-channel endpoint, bound to either side
// after the pair has been split across the clone.
type Endpoint struct {
	conn net.Conn
	file *os.File
}

// NewEndpoint wraps a raw file as a sync-channel endpoint.
func NewEndpoint(f *os.File) (*Endpoint, error) {
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, boxerr.Wrap(boxerr.Io, "sync endpoint FileConn", err)
	}
	return &Endpoint{conn: conn, file: f}, nil
}

// UnixConn exposes the underlying *net.UnixConn. The PTY slave fd
// transfer in package pivot goes through File instead.
func (e *Endpoint) UnixConn() *net.UnixConn { return e.conn.(*net.UnixConn) }

// Send writes one message byte. Each sender writes exactly one byte
// per message.
func (e *Endpoint) Send(m Message) error {
	_, err := e.conn.Write([]byte{byte(m)})
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "sync send "+m.String(), err)
	}
	return nil
}

// Expect blocks reading one byte and fails with a Protocol error if
// the received message is not exactly the one expected, or if the
// read returns zero bytes (orderly close) when a message was still
// required.
func (e *Endpoint) Expect(want Message) error {
	buf := make([]byte, 1)
	n, err := e.conn.Read(buf)
	if err != nil {
		return boxerr.Wrap(boxerr.Protocol, "reading "+want.String(), err)
	}
	if n == 0 {
		return boxerr.New(boxerr.Protocol, "unexpected close waiting for "+want.String())
	}
	got := Message(buf[0])
	if got != want {
		return boxerr.New(boxerr.Protocol, fmt.Sprintf("expected %s, got %s", want, got))
	}
	return nil
}

// WaitClose blocks until the peer closes its end (a zero-length read),
// treated as "proceed": the child has exec'd and its copy of the sync
// socket was closed-on-exec.
func (e *Endpoint) WaitClose() error {
	buf := make([]byte, 1)
	n, err := e.conn.Read(buf)
	if n == 0 {
		return nil
	}
	if err != nil {
		return boxerr.Wrap(boxerr.Protocol, "waiting for socket close", err)
	}
	return boxerr.New(boxerr.Protocol, fmt.Sprintf("unexpected byte %d waiting for socket close", buf[0]))
}

// Close closes the endpoint: both the net.Conn and the raw file it was
// built from, so the peer observes the close.
func (e *Endpoint) Close() error {
	err := e.conn.Close()
	if ferr := e.file.Close(); err == nil {
		err = ferr
	}
	return err
}

// File returns the raw file backing this endpoint, still open.
func (e *Endpoint) File() *os.File { return e.file }

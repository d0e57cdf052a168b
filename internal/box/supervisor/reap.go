package supervisor

import (
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// ExitStatus is the terminal disposition of the container-side init
// process, carrying enough information to compute the OCI exit code:
// a process that dies to a signal reports as 128+signum, a normal
// exit reports its own status.
type ExitStatus struct {
	Code   int
	Signal int // 0 unless the process died to a signal
}

// OCICode maps the kernel's wait status to the single integer OCI
// tooling expects back from the runtime.
func (e ExitStatus) OCICode() int {
	if e.Signal != 0 {
		return 128 + e.Signal
	}
	return e.Code
}

// WaitInit blocks until pid exits, reaping it, and reports its
// disposition. It is intentionally a single blocking wait rather than
// a SIGCHLD-driven loop: the supervisor only ever has one direct child
// (the container-side init), so there is nothing to disambiguate.
func WaitInit(pid int) (ExitStatus, error) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return ExitStatus{}, boxerr.Wrap(boxerr.Io, "wait4 init process", err)
		}
		break
	}
	switch {
	case ws.Exited():
		return ExitStatus{Code: ws.ExitStatus()}, nil
	case ws.Signaled():
		return ExitStatus{Signal: int(ws.Signal())}, nil
	default:
		return ExitStatus{Code: ws.ExitStatus()}, nil
	}
}

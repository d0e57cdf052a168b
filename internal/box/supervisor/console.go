// Package supervisor runs on the runtime side once the container-side
// child is launched: it forwards console I/O, propagates terminal
// resize and forwardable signals, and reaps the child's exit.
//
// Console forwarding runs as a pair of read-loop goroutines, one per
// direction, fanning in on a done channel, rather than a raw epoll
// event loop: Go's runtime already multiplexes blocking I/O across
// goroutines without needing direct epoll or signalfd syscalls.
package supervisor

import (
	"io"
	"os"

	"github.com/moby/term"

	"github.com/linyaps-box/box/internal/box/boxerr"
)

// Console wires the runtime's own stdio to a PTY master, putting the
// calling terminal (if any) into raw mode for the duration.
type Console struct {
	master   *os.File
	state    *term.State
	hadState bool
}

// AttachMaster begins forwarding between master and the runtime
// process's own stdin/stdout. If stdin is a terminal it is switched to
// raw mode so keystrokes pass through uninterpreted, matching the
// container-side PTY's line discipline.
//
// The returned channel reports the completion of the master-to-stdout
// copy only: that is the direction that reaches EOF on its own, once
// the container's last fd onto the PTY slave closes on exit, and it is
// the one callers must drain before treating captured output as
// complete. The stdin-to-master copy has no such natural end — an
// interactive stdin may never close — so it is left running
// unobserved; the process exits out from under it.
func AttachMaster(master *os.File) (*Console, <-chan error, error) {
	c := &Console{master: master}

	if term.IsTerminal(os.Stdin.Fd()) {
		state, err := term.SetRawTerminal(os.Stdin.Fd())
		if err != nil {
			return nil, nil, boxerr.Wrap(boxerr.Io, "set raw terminal", err)
		}
		c.state = state
		c.hadState = true
	}

	outputDone := make(chan error, 1)
	go func() {
		_, _ = io.Copy(master, os.Stdin)
	}()
	go func() {
		_, err := io.Copy(os.Stdout, master)
		outputDone <- err
	}()

	return c, outputDone, nil
}

// Restore puts the runtime's terminal back into cooked mode.
func (c *Console) Restore() error {
	if !c.hadState {
		return nil
	}
	if err := term.RestoreTerminal(os.Stdin.Fd(), c.state); err != nil {
		return boxerr.Wrap(boxerr.Io, "restore terminal", err)
	}
	return nil
}

// ResizeFromHost copies the runtime terminal's current window size
// onto the PTY master, used both at attach time and on every SIGWINCH.
func ResizeFromHost(master *os.File) error {
	ws, err := term.GetWinsize(os.Stdin.Fd())
	if err != nil {
		return boxerr.Wrap(boxerr.Io, "get host winsize", err)
	}
	if err := term.SetWinsize(master.Fd(), ws); err != nil {
		return boxerr.Wrap(boxerr.Io, "set pty winsize", err)
	}
	return nil
}

package supervisor

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// forwardableSignals are the signals relayed to the container-side
// init process while the runtime process supervises it; SIGCHLD,
// SIGURG (Go runtime preemption) and the stop-the-world debugger
// signals are never forwarded.
var forwardableSignals = []os.Signal{
	syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM,
	syscall.SIGUSR1, syscall.SIGUSR2, syscall.SIGWINCH,
	syscall.SIGTSTP, syscall.SIGCONT,
}

// ForwardSignals relays every forwardable signal received by the
// runtime process to pid, and calls onResize for SIGWINCH in addition
// to the forward: window size changes and process-directed signals
// delivered to the runtime process are relayed to the container-side
// init. It runs until stop is closed.
func ForwardSignals(pid int, onResize func(), stop <-chan struct{}) {
	ch := make(chan os.Signal, 32)
	signal.Notify(ch, forwardableSignals...)
	defer signal.Stop(ch)

	for {
		select {
		case <-stop:
			return
		case sig := <-ch:
			s, ok := sig.(syscall.Signal)
			if !ok {
				continue
			}
			if s == syscall.SIGWINCH && onResize != nil {
				onResize()
			}
			unix.Kill(pid, unix.Signal(s))
		}
	}
}

package cli

import (
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

func newKillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kill ID [SIGNAL]",
		Short: "send a signal to a container's init process",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := statusdir.Open(rootDir)
			if err != nil {
				return err
			}
			record, err := dir.Load(args[0])
			if err != nil {
				return err
			}
			if record.Phase != statusdir.PhaseRunning {
				return boxerr.New(boxerr.State, "container "+args[0]+" is not running")
			}

			sig := unix.SIGTERM
			if len(args) == 2 {
				sig, err = parseSignal(args[1])
				if err != nil {
					return err
				}
			}
			if err := unix.Kill(record.Pid, sig); err != nil {
				return boxerr.Wrap(boxerr.Io, "kill", err)
			}
			return nil
		},
	}
}

func parseSignal(s string) (unix.Signal, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return unix.Signal(n), nil
	}
	named := map[string]unix.Signal{
		"SIGHUP": unix.SIGHUP, "SIGINT": unix.SIGINT, "SIGQUIT": unix.SIGQUIT,
		"SIGKILL": unix.SIGKILL, "SIGTERM": unix.SIGTERM, "SIGUSR1": unix.SIGUSR1,
		"SIGUSR2": unix.SIGUSR2, "SIGCONT": unix.SIGCONT, "SIGSTOP": unix.SIGSTOP,
	}
	if sig, ok := named[s]; ok {
		return sig, nil
	}
	return 0, boxerr.New(boxerr.Config, "unknown signal "+s)
}

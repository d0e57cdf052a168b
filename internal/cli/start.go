package cli

import (
	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start ID",
		Short: "start a previously created container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := statusdir.Open(rootDir)
			if err != nil {
				return err
			}
			record, err := dir.Load(args[0])
			if err != nil {
				return err
			}
			if record.Phase != statusdir.PhaseRunning && record.Phase != statusdir.PhaseCreated {
				return boxerr.New(boxerr.State, "container "+args[0]+" is not startable from phase "+string(record.Phase))
			}
			// create already runs the container through to Running
			// (see create.go); start against an already-running
			// container is therefore a no-op that just confirms state.
			return nil
		},
	}
}

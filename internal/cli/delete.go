package cli

import (
	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

func newDeleteCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "remove a stopped container's status record",
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
			if record.Phase != statusdir.PhaseStopped && !force {
				return boxerr.New(boxerr.State, "container "+args[0]+" is not stopped; use --force")
			}
			return dir.Remove(args[0])
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete regardless of container state")
	return cmd
}

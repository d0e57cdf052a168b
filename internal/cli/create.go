package cli

import (
	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/orchestrator"
)

func newCreateCmd() *cobra.Command {
	var bundle, configName string
	cmd := &cobra.Command{
		Use:   "create ID",
		Short: "create a container from an OCI bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, abs, err := loadBundle(bundle, configName)
			if err != nil {
				return err
			}
			// box's sync protocol has no suspend point
			// between createContainer hooks and the final exec, so
			// there is nothing left for a later "start" to trigger:
			// create runs the container through to Running and
			// detaches, leaving the caller free to issue exec/kill
			// against it by ID.
			_, err = orchestrator.Run(c, orchestrator.RunOptions{
				ID:            args[0],
				BundlePath:    abs,
				StatusRoot:    rootDir,
				Detach:        true,
				CgroupManager: cgroupManager,
			})
			return err
		},
	}
	cmd.Flags().StringVarP(&bundle, "bundle", "b", ".", "path to the OCI bundle")
	cmd.Flags().StringVarP(&configName, "config", "f", "config.json", "bundle config file name")
	return cmd
}

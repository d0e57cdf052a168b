package cli

import (
	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/orchestrator"
	"github.com/linyaps-box/box/internal/box/supervisor"
)

func newRunCmd() *cobra.Command {
	var bundle, configName string
	cmd := &cobra.Command{
		Use:   "run ID",
		Short: "create and run a container, blocking until it exits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, abs, err := loadBundle(bundle, configName)
			if err != nil {
				return err
			}
			status, err := orchestrator.Run(c, orchestrator.RunOptions{
				ID:            args[0],
				BundlePath:    abs,
				StatusRoot:    rootDir,
				CgroupManager: cgroupManager,
			})
			if err != nil {
				return err
			}
			return exitWith(status)
		},
	}
	cmd.Flags().StringVarP(&bundle, "bundle", "b", ".", "path to the OCI bundle")
	cmd.Flags().StringVarP(&configName, "config", "f", "config.json", "bundle config file name")
	return cmd
}

// exitWith converts a non-zero container exit into a cobra-visible
// error without logging a diagnostic; Execute's top-level handler
// translates it into the process exit code without printing it.
func exitWith(status supervisor.ExitStatus) error {
	code := status.OCICode()
	if code == 0 {
		return nil
	}
	return exitCodeError(code)
}

type exitCodeError int

func (e exitCodeError) Error() string { return "container exited non-zero" }

package cli

import (
	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/orchestrator"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

func newExecCmd() *cobra.Command {
	var cwd, user string
	cmd := &cobra.Command{
		Use:   "exec ID -- COMMAND [ARG...]",
		Short: "run a command inside a running container",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := statusdir.Open(rootDir)
			if err != nil {
				return err
			}
			return orchestrator.Exec(dir, orchestrator.ExecOptions{
				ID:   args[0],
				Args: args[1:],
				Cwd:  cwd,
				User: user,
			})
		},
	}
	cmd.Flags().StringVar(&cwd, "cwd", "", "working directory for the executed process")
	cmd.Flags().StringVarP(&user, "user", "u", "", "UID[:GID] to run the executed process as")
	return cmd
}

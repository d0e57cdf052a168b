package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/printer"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state ID",
		Short: "print a single container's status record as JSON",
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
			return printer.JSON(os.Stdout, []statusdir.Record{record})
		},
	}
}

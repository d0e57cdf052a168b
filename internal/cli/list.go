package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/printer"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

func newListCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list known containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := statusdir.Open(rootDir)
			if err != nil {
				return err
			}
			ids, err := dir.List()
			if err != nil {
				return err
			}
			records := make([]statusdir.Record, 0, len(ids))
			for _, id := range ids {
				r, err := dir.Load(id)
				if err != nil {
					continue
				}
				records = append(records, r)
			}
			switch format {
			case "table":
				printer.Table(os.Stdout, records)
				return nil
			case "json":
				return printer.JSON(os.Stdout, records)
			default:
				return boxerr.New(boxerr.Config, "unknown format "+format+"; want table or json")
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	return cmd
}

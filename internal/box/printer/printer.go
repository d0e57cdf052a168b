// Package printer renders container listings as a table, via
// text/tabwriter, or as JSON, with fatih/color for status-dependent
// coloring of the table form.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/linyaps-box/box/internal/box/boxerr"
	"github.com/linyaps-box/box/internal/box/statusdir"
)

const listLine = "%s\t%s\t%s\t%s\n"

var phaseColor = map[statusdir.Phase]*color.Color{
	statusdir.PhaseCreating: color.New(color.FgYellow),
	statusdir.PhaseCreated:  color.New(color.FgYellow),
	statusdir.PhaseRunning:  color.New(color.FgGreen),
	statusdir.PhaseStopped:  color.New(color.FgRed),
}

// Table writes records as an aligned, colorized table to w.
func Table(w io.Writer, records []statusdir.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, listLine, "ID", "PID", "STATUS", "BUNDLE")
	for _, r := range records {
		status := string(r.Phase)
		if c, ok := phaseColor[r.Phase]; ok {
			status = c.Sprint(status)
		}
		fmt.Fprintf(tw, listLine, r.ID, pidColumn(r.Pid), status, r.Bundle)
	}
	tw.Flush()
}

func pidColumn(pid int) string {
	if pid == 0 {
		return "-"
	}
	return fmt.Sprintf("%d", pid)
}

// JSON writes records as a JSON array to w.
func JSON(w io.Writer, records []statusdir.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return boxerr.Wrap(boxerr.Io, "encode status records", err)
	}
	return nil
}

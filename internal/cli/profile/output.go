package profile

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/bigsql/pgadmin4/internal/cli/helpers"
	"github.com/bigsql/pgadmin4/internal/plprofiler"
	"github.com/bigsql/pgadmin4/internal/report"
	"github.com/bigsql/pgadmin4/internal/reportstore"
)

var runFormats = []helpers.OutputFormat{helpers.FormatTable, helpers.FormatJSON}

// runOutput is the JSON shape of a finished run.
type runOutput struct {
	TransactionID string                    `json:"transaction_id"`
	Columns       []string                  `json:"columns,omitempty"`
	Rows          [][]any                   `json:"rows,omitempty"`
	Report        *reportstore.StoredReport `json:"report"`
	Functions     []report.FunctionRef      `json:"functions"`
	Overflow      report.OverflowFlags      `json:"overflow_flags"`
}

// interruptible cancels ctx on SIGINT or SIGTERM so a run can clean up.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func printResultSet(w io.Writer, rs *plprofiler.ResultSet) error {
	if rs == nil || len(rs.Columns) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(rs.Columns, "\t")); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = fmt.Sprintf("%v", v)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "(%d row%s)\n", len(rs.Rows), plural(len(rs.Rows)))
	return err
}

func printSummary(w io.Writer, saved *reportstore.StoredReport, rep *report.Report, tree bool) {
	fmt.Fprintf(w, "\nReport #%d %q saved to %s\n", saved.ID, saved.Name, saved.StoragePath)
	fmt.Fprintf(w, "Duration: %.3fs, routines: %d", saved.DurationSeconds, len(rep.FunctionDefs))
	if rep.Selection.FoundMoreFunctions {
		fmt.Fprint(w, " (more routines were sampled than reported)")
	}
	fmt.Fprintln(w)

	if rep.Overflow.Any() {
		fmt.Fprintf(w, "Warning: shared profiling buffers overflowed (callgraph=%t functions=%t lines=%t), the report may be incomplete\n",
			rep.Overflow.CallGraph, rep.Overflow.Functions, rep.Overflow.Lines)
	}

	if tree {
		fmt.Fprintln(w)
		fmt.Fprint(w, helpers.RenderCallTree(report.BuildCallTree(rep.CallGraph, rep.Names())))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

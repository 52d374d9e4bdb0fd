// Package report implements the 'pgprof report' command family over the
// saved report index.
package report

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigsql/pgadmin4/internal/cli/helpers"
	"github.com/bigsql/pgadmin4/internal/database"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/safe"
)

// NewReportCmd creates the report command and its subcommands.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "report",
		Aliases: []string{"reports"},
		Short:   "Browse and manage saved reports",
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newSweepCmd())

	return cmd
}

// reportRow is one line of 'report list'.
type reportRow struct {
	ID       int64     `header:"ID" json:"id"`
	Name     string    `header:"NAME" json:"name"`
	Kind     string    `header:"KIND" json:"kind"`
	Database string    `header:"DATABASE" json:"database"`
	Created  time.Time `header:"CREATED" json:"created_at"`
	Duration float64   `header:"DURATION(S)" json:"duration_seconds"`
	Format   string    `header:"FORMAT" json:"format"`
	Size     int64     `header:"SIZE" json:"size_bytes"`
	Path     string    `json:"path"`
}

func toRows(reports []*database.SavedReport) []reportRow {
	rows := make([]reportRow, len(reports))
	for i, r := range reports {
		kind := "indirect"
		if r.IsDirect {
			kind = "direct"
		}
		rows[i] = reportRow{
			ID:       r.ID,
			Name:     r.Name,
			Kind:     kind,
			Database: r.DatabaseName,
			Created:  r.CreatedAt,
			Duration: r.DurationSeconds,
			Format:   r.Format,
			Size:     r.SizeBytes,
			Path:     r.StoragePath,
		}
	}
	return rows
}

func newListCmd() *cobra.Command {
	var (
		name     string
		dbName   string
		direct   bool
		indirect bool
		limit    int
		format   string
		window   helpers.TimeFlags
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		Example: `  pgprof report list --since 24h
  pgprof report list --name compute --direct -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			if direct && indirect {
				return fmt.Errorf("--direct and --indirect are mutually exclusive")
			}
			tr, err := window.Parse(time.Now())
			if err != nil {
				return err
			}

			filter := database.ReportFilter{
				Name:     name,
				Database: dbName,
				Since:    tr.Start,
				Until:    tr.End,
				Limit:    limit,
			}
			switch {
			case direct:
				filter.Direct = &direct
			case indirect:
				d := false
				filter.Direct = &d
			}

			app, err := helpers.OpenStore()
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			reports, err := app.Store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(reports) == 0 && format == string(helpers.FormatTable) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No saved reports.")
				return nil
			}
			return helpers.Print(cmd.OutOrStdout(), format, toRows(reports))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only reports whose name contains this text")
	cmd.Flags().StringVar(&dbName, "database", "", "Only reports of this database")
	cmd.Flags().BoolVar(&direct, "direct", false, "Only direct (single routine) reports")
	cmd.Flags().BoolVar(&indirect, "indirect", false, "Only indirect (monitoring) reports")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of reports (0 for all)")
	window.AddFlags(cmd.Flags())
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListFormats)

	return cmd
}

func newShowCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved report artifact",
		Long: `Print the rendered artifact of a saved report to stdout, or copy it to a
new file with --output. Existing files are never overwritten.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			app, err := helpers.OpenStore()
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			data, entry, err := app.Store.Read(cmd.Context(), id)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			f, err := safe.CreateExclusive(output, 0644)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if _, err := f.Write(data); err != nil {
				_ = f.Close()
				_ = os.Remove(output)
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Report #%d (%s) written to %s\n", entry.ID, entry.Format, output)
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Write to this file instead of stdout")
	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete saved reports and their artifacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, a := range args {
				id, err := parseID(a)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			app, err := helpers.OpenStore()
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			var failed int
			for _, id := range ids {
				if err := app.Store.Delete(cmd.Context(), id); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "Report #%d: %v\n", id, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted report #%d\n", id)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d deletions failed", failed, len(ids))
			}
			return nil
		},
	}
}

func newSweepCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove report files that no index entry refers to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := helpers.OpenStore()
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			paths, err := app.Store.Sweep(cmd.Context(), dryRun)
			if err != nil {
				return err
			}
			verb := "Removed"
			if dryRun {
				verb = "Would remove"
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, p)
			}
			if len(paths) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No orphaned report files.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only list the files that would be removed")
	return cmd
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, pgerrors.Errorf(pgerrors.KindConfiguration, "cli.report", "invalid report id %q", s)
	}
	return id, nil
}

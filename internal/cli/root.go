// Package cli wires the pgprof command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/bigsql/pgadmin4/internal/cli/config"
	"github.com/bigsql/pgadmin4/internal/cli/helpers"
	"github.com/bigsql/pgadmin4/internal/cli/profile"
	"github.com/bigsql/pgadmin4/internal/cli/report"
	"github.com/bigsql/pgadmin4/internal/cli/session"
	"github.com/bigsql/pgadmin4/pkg/version"
)

// NewRootCmd builds the pgprof command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pgprof",
		Short: "pgprof - profiler for PostgreSQL stored routines",
		Long: `Profile PL/pgSQL functions and procedures with the plprofiler extension.

pgprof runs a routine once with profiling enabled (direct profiling) or
monitors a database for a time window (indirect profiling), aggregates the
collected samples into a report of the hottest routines with per-line
statistics and a call graph, and keeps every report in a local store.

Reports are rendered as HTML with a flame graph, as folded stacks for
flamegraph.pl, or as pprof profiles for 'go tool pprof'.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	helpers.BindGlobalFlags(root.PersistentFlags())

	root.AddCommand(profile.NewProfileCmd())
	root.AddCommand(report.NewReportCmd())
	root.AddCommand(session.NewSessionCmd())
	root.AddCommand(config.NewConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

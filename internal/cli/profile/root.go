// Package profile implements the 'pgprof profile' command family.
package profile

import "github.com/spf13/cobra"

// NewProfileCmd creates the root profile command.
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile stored routines",
		Long: `Profile PL/pgSQL routines with the plprofiler extension.

Two modes are available:
- function: execute one routine with profiling enabled for this session only.
  The extension must NOT be listed in shared_preload_libraries.
- database: monitor the whole database (or one backend) for a time window.
  The extension must be listed in shared_preload_libraries.

Each run renders a report into the storage directory and records it in the
report index. Use 'pgprof report list' to browse saved reports.

Examples:
  pgprof profile function 16402 --arg 10 --arg :default
  pgprof profile database --duration 30s --interval 1s
  pgprof profile database --pid 4242 --tree`,
	}

	cmd.AddCommand(NewFunctionCmd())
	cmd.AddCommand(NewDatabaseCmd())

	return cmd
}

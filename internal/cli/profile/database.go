package profile

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigsql/pgadmin4/internal/cli/helpers"
	"github.com/bigsql/pgadmin4/internal/session"
)

// NewDatabaseCmd creates the indirect profiling command.
func NewDatabaseCmd() *cobra.Command {
	var (
		duration    time.Duration
		interval    time.Duration
		pid         int32
		reportFlags helpers.ReportOptionFlags
		tree        bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "database",
		Short: "Monitor routine execution across the database for a time window",
		Long: `Collect profiling data in shared memory for every backend of the server,
or for a single backend with --pid, then render and save the report.

The window can be ended early with Ctrl-C; collection is always switched
off again before exiting.

Examples:
  pgprof profile database --duration 1m
  pgprof profile database --pid 4242 --duration 30s --interval 500ms`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, runFormats); err != nil {
				return err
			}

			ctx, stop := interruptible(cmd.Context())
			defer stop()

			app, err := helpers.Open(ctx)
			if err != nil {
				return err
			}
			defer app.Close(context.WithoutCancel(ctx))

			if !cmd.Flags().Changed("duration") {
				duration = app.Config.Monitor.DefaultDuration
			}
			if !cmd.Flags().Changed("interval") {
				interval = app.Config.Monitor.DefaultInterval
			}
			run := runConfig(duration, interval)
			if cmd.Flags().Changed("pid") {
				run.TargetPID = &pid
			}

			id, err := app.Sessions.Create(ctx)
			if err != nil {
				return err
			}
			s, err := app.Runner.InitIndirect(ctx, id, run)
			if err != nil {
				return err
			}
			if opts := reportFlags.Options(); len(opts) > 0 {
				if _, err := app.Runner.SetReportOptions(ctx, id, opts); err != nil {
					return err
				}
			}

			errOut := cmd.ErrOrStderr()
			target := "all backends"
			if run.TargetPID != nil {
				target = fmt.Sprintf("backend %d", *run.TargetPID)
			}
			fmt.Fprintf(errOut, "Monitoring %s of database %q for %s...\n", target, s.DatabaseName, run.Duration())

			res, err := app.Runner.Monitor(ctx, id)
			if err != nil {
				return err
			}

			if format == string(helpers.FormatJSON) {
				return helpers.Print(cmd.OutOrStdout(), format, runOutput{
					TransactionID: id,
					Report:        res.Report,
					Functions:     res.Profile.FunctionList,
					Overflow:      res.Profile.Overflow,
				})
			}
			printSummary(errOut, res.Report, res.Profile, tree)
			return nil
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Monitoring window (default from monitor.default_duration)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Sampling interval (default from monitor.default_interval)")
	cmd.Flags().Int32Var(&pid, "pid", 0, "Only monitor this backend process id")
	reportFlags.Add(cmd, "Indirect")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the call tree after the run")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, runFormats)

	return cmd
}

// runConfig converts flag durations to the session's whole seconds and
// milliseconds, rounding the window up.
func runConfig(duration, interval time.Duration) session.RunConfig {
	return session.RunConfig{
		DurationSeconds:  int(math.Ceil(duration.Seconds())),
		SampleIntervalMS: int(interval.Milliseconds()),
	}
}

package profile

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigsql/pgadmin4/internal/cli/helpers"
)

// NewFunctionCmd creates the direct profiling command.
func NewFunctionCmd() *cobra.Command {
	var (
		rawArgs     []string
		reportFlags helpers.ReportOptionFlags
		showParams  bool
		tree        bool
		format      string
	)

	cmd := &cobra.Command{
		Use:   "function <oid>",
		Short: "Execute a routine once with profiling enabled",
		Long: `Execute a function or procedure once on a dedicated connection with
local profiling enabled, then render and save the report.

Arguments are given positionally with repeated --arg flags. Special forms:
  :null        pass NULL
  :default     use the declared default (later arguments are passed by name)
  expr:<sql>   pass an SQL expression instead of a literal
  \<value>     pass <value> literally, even if it looks like a special form

When no --arg is given, the values remembered from the previous run of the
same routine are reused. Values given with --arg are remembered.

Examples:
  pgprof profile function 16402 --arg 10 --arg 'hello'
  pgprof profile function 16402 --arg expr:now() --arg :null
  pgprof profile function 16402 --params`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			oid, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid routine oid %q: %w", args[0], err)
			}
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

			id, err := app.Sessions.Create(ctx)
			if err != nil {
				return err
			}
			s, err := app.Runner.InitDirect(ctx, id, uint32(oid))
			if err != nil {
				return err
			}

			if len(rawArgs) > 0 {
				if s, err = app.Runner.SetArguments(ctx, id, parseArguments(rawArgs)); err != nil {
					return err
				}
			}
			if opts := reportFlags.Options(); len(opts) > 0 {
				if _, err := app.Runner.SetReportOptions(ctx, id, opts); err != nil {
					return err
				}
			}

			if showParams {
				params, err := app.Runner.Parameters(ctx, id)
				if err != nil {
					return err
				}
				return helpers.Print(cmd.OutOrStdout(), format, params)
			}

			target, _ := s.Direct()
			errOut := cmd.ErrOrStderr()
			fmt.Fprintf(errOut, "Profiling %s.%s in database %q...\n", target.Schema, target.Name, s.DatabaseName)
			if len(s.Arguments) > 0 {
				described := make([]string, len(s.Arguments))
				for i, a := range s.Arguments {
					described[i] = describeArgument(a)
				}
				fmt.Fprintf(errOut, "Arguments: %s\n", strings.Join(described, ", "))
			}

			res, err := app.Runner.ExecuteDirect(ctx, id)
			if err != nil {
				return err
			}

			if format == string(helpers.FormatJSON) {
				out := runOutput{
					TransactionID: id,
					Columns:       res.Result.Columns,
					Rows:          res.Result.Rows,
					Report:        res.Report,
					Functions:     res.Profile.FunctionList,
					Overflow:      res.Profile.Overflow,
				}
				return helpers.Print(cmd.OutOrStdout(), format, out)
			}

			if err := printResultSet(cmd.OutOrStdout(), res.Result); err != nil {
				return err
			}
			printSummary(errOut, res.Report, res.Profile, tree)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rawArgs, "arg", nil, "Routine argument, repeat in declaration order")
	reportFlags.Add(cmd, "routine name")
	cmd.Flags().BoolVar(&showParams, "params", false, "Show the routine's parameters and current values without running it")
	cmd.Flags().BoolVar(&tree, "tree", false, "Print the call tree after the run")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, runFormats)

	return cmd
}

// Package session implements the 'pgprof session' commands for inspecting
// and closing profiling sessions held in a shared session store.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bigsql/pgadmin4/internal/cli/helpers"
	"github.com/bigsql/pgadmin4/internal/session"
)

// NewSessionCmd creates the session command and its subcommands.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Inspect and close profiling sessions",
		Long: `Inspect and close profiling sessions.

Sessions only outlive the command that created them with the redis session
backend. Closing a session left behind by a crashed process removes its
record; its database connections already ended with that process.`,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newCloseCmd())

	return cmd
}

// sessionRow is one line of 'session list'.
type sessionRow struct {
	ID       string    `header:"ID" json:"transaction_id"`
	Kind     string    `header:"KIND" json:"kind"`
	Target   string    `header:"TARGET" json:"target"`
	Database string    `header:"DATABASE" json:"database"`
	Conns    int       `header:"CONNS" json:"connections"`
	Created  time.Time `header:"CREATED" json:"created_at"`
	Updated  time.Time `header:"UPDATED" json:"updated_at"`
}

func toRow(s *session.Session) sessionRow {
	row := sessionRow{
		ID:       s.ID,
		Kind:     "new",
		Database: s.DatabaseName,
		Conns:    len(s.ConnectionRefs),
		Created:  s.CreatedAt,
		Updated:  s.UpdatedAt,
	}
	if t, ok := s.Direct(); ok {
		row.Kind = string(t.Kind())
		row.Target = t.Schema + "." + t.Name
	} else if s.IsIndirect() {
		row.Kind = string(session.KindIndirect)
		row.Target = fmt.Sprintf("%ds window", s.RunConfig.DurationSeconds)
		if s.RunConfig.TargetPID != nil {
			row.Target += fmt.Sprintf(", pid %d", *s.RunConfig.TargetPID)
		}
	}
	return row
}

func newListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List live sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			app, err := helpers.OpenSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			sessions, err := app.Sessions.List(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]sessionRow, len(sessions))
			for i, s := range sessions {
				rows[i] = toRow(s)
			}
			if len(rows) == 0 && format == string(helpers.FormatTable) {
				fmt.Fprintln(cmd.ErrOrStderr(), "No live sessions.")
				return nil
			}
			return helpers.Print(cmd.OutOrStdout(), format, rows)
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListFormats)
	return cmd
}

func newCloseCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "close [id]...",
		Short: "Close sessions by transaction id, or all with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return fmt.Errorf("give session ids or --all, not both")
			}
			app, err := helpers.OpenSessions(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close(context.Background())

			if all {
				res, err := app.Sessions.CloseAll(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed %d session(s)\n", len(res.Closed))
				if len(res.Failed) > 0 {
					return fmt.Errorf("%d session(s) failed to close", len(res.Failed))
				}
				return nil
			}

			for _, id := range args {
				if err := app.Sessions.Close(cmd.Context(), id); err != nil {
					return fmt.Errorf("failed to close session %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Closed session %s\n", id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Close every live session")
	return cmd
}

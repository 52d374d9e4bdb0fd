// Package config implements the 'pgprof config' command family.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigsql/pgadmin4/internal/cli/helpers"
	"github.com/bigsql/pgadmin4/internal/config"
)

// redacted replaces secrets in 'config view'.
const redacted = "********"

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage pgprof configuration",
		Long: `Manage pgprof configuration.

Configuration is read from config.yaml in the configuration directory and
then overridden by environment variables and command line flags.

Environment Variables:
  PGPROF_CONFIG          Override config directory (default: ~/.pgprof)
  PGPROF_DSN             PostgreSQL connection string
  PGPROF_LOG_LEVEL       Log level
  PGPROF_TOP_K           Routines per report
  PGPROF_SESSION_BACKEND memory or redis
  PGPROF_REDIS_ADDR      Redis address for the redis session backend
  PGPROF_STORAGE_DIR     Report storage directory
  PGPROF_REPORT_FORMAT   html, folded or pprof`,
	}

	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newPathCmd())

	return cmd
}

func newViewCmd() *cobra.Command {
	var (
		raw    bool
		format string
	)

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration after defaults, environment variables and
flags are applied. Secrets are redacted. Use --raw to print config.yaml as
it is on disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw {
				path := helpers.Loader().ConfigPath()
				data, err := os.ReadFile(path) //nolint:gosec // G304: path is under the trusted config directory.
				if errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("no config file at %s, run 'pgprof config init'", path)
				}
				if err != nil {
					return fmt.Errorf("failed to read config: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := helpers.ValidateFormat(format, viewFormats); err != nil {
				return err
			}
			cfg, err := helpers.LoadConfig()
			if err != nil {
				return err
			}
			return helpers.Print(cmd.OutOrStdout(), format, redact(cfg))
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print config.yaml as stored")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatYAML, viewFormats)
	return cmd
}

var viewFormats = []helpers.OutputFormat{helpers.FormatYAML, helpers.FormatJSON}

// redact returns a copy of cfg without secrets.
func redact(cfg *config.Config) *config.Config {
	c := *cfg
	if c.Postgres.DSN != "" {
		c.Postgres.DSN = redactDSN(c.Postgres.DSN)
	}
	if c.Sessions.Redis.Password != "" {
		c.Sessions.Redis.Password = redacted
	}
	return &c
}

func newInitCmd() *cobra.Command {
	var (
		force bool
		dsn   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config.yaml with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := helpers.Loader()
			path := loader.ConfigPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", path)
			}

			cfg := config.DefaultConfig()
			cfg.Postgres.DSN = dsn
			if err := loader.Save(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&dsn, "postgres-dsn", "", "PostgreSQL connection string to store")
	return cmd
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := helpers.LoadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return nil
		},
	}
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), helpers.Loader().ConfigPath())
			return err
		},
	}
}

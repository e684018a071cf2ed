// Command migrate runs schema operations for the caption board database.
package main

import (
	"fmt"
	"os"
	"strconv"

	"captionboard/internal/bootstrap"
	"captionboard/internal/config"
	"captionboard/internal/database"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(config.LoadConfig).Execute(); err != nil {
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)

// withRuntime loads the config, connects without touching the schema and
// runs fn.
func withRuntime(load configLoader, fn func(cmd *cobra.Command, cfg *config.Config, rt *bootstrap.Runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		rt, err := bootstrap.InitRuntime(cmd.Context(), cfg, bootstrap.Options{})
		if err != nil {
			return err
		}
		defer func() { _ = rt.Close() }()
		return fn(cmd, cfg, rt)
	}
}

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the caption board database schema",
		Long: `Apply, inspect and roll back schema migrations.

Available subcommands:
  up     - Apply pending SQL migrations
  auto   - Run GORM AutoMigrate over the persistent models
  status - Show applied and pending migrations and missing tables
  down   - Roll back one migration (the latest by default)`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: withRuntime(load, func(cmd *cobra.Command, _ *config.Config, rt *bootstrap.Runtime) error {
			if err := database.RunMigrations(cmd.Context(), rt.DB); err != nil {
				return fmt.Errorf("sql migrations failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sql migrations applied")
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "auto",
		Short: "Run GORM AutoMigrate",
		Args:  cobra.NoArgs,
		RunE: withRuntime(load, func(cmd *cobra.Command, cfg *config.Config, rt *bootstrap.Runtime) error {
			cfg.DBSchemaMode = database.SchemaModeAuto
			if err := database.ApplySchema(cmd.Context(), rt.DB, cfg); err != nil {
				return fmt.Errorf("auto schema apply failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "automigrations applied")
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show schema status",
		Args:  cobra.NoArgs,
		RunE: withRuntime(load, func(cmd *cobra.Command, cfg *config.Config, rt *bootstrap.Runtime) error {
			status, err := database.GetSchemaStatus(cmd.Context(), rt.DB, cfg)
			if err != nil {
				return fmt.Errorf("schema status failed: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode=%s env=%s dialect=%s run_sql=%t run_auto=%t applied=%d pending=%d\n",
				status.Mode, status.Environment, status.Dialect, status.WillRunSQL, status.WillRunAutoMigrate,
				len(status.AppliedVersions), len(status.PendingMigrations))
			for _, name := range status.PendingNames() {
				fmt.Fprintf(out, "pending: %s\n", name)
			}
			for _, table := range status.MissingTables {
				fmt.Fprintf(out, "missing table: %s\n", table)
			}
			return nil
		}),
	})

	down := &cobra.Command{
		Use:   "down [version]",
		Short: "Roll back a migration",
		Args:  cobra.MaximumNArgs(1),
	}
	down.RunE = func(cmd *cobra.Command, args []string) error {
		version := 0
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			version = v
		}
		return withRuntime(load, func(cmd *cobra.Command, _ *config.Config, rt *bootstrap.Runtime) error {
			if version == 0 {
				v, err := database.RollbackLatest(cmd.Context(), rt.DB)
				if err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
				version = v
			} else if err := database.RollbackMigration(cmd.Context(), rt.DB, version); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back migration %d\n", version)
			return nil
		})(cmd, args)
	}
	root.AddCommand(down)

	return root
}

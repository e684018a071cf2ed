// Command seed populates the database with a demo caption feed.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"captionboard/internal/bootstrap"
	"captionboard/internal/config"
	"captionboard/internal/seed"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(config.LoadConfig).Execute(); err != nil {
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	var (
		opts        seed.Options
		applySchema bool
		cleanOnly   bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with a demo caption feed",
		Long: `Insert demo identities, profiles, captions and likes.

The hand-written captions in the fixtures file are always included unless
--skip-fixtures is given. Use --seed to make a run reproducible.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a %s database", cfg.Env)
			}

			rt, err := bootstrap.InitRuntime(cmd.Context(), cfg, bootstrap.Options{ApplySchema: applySchema})
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			seeder := seed.NewSeeder(rt.DB)
			if cleanOnly {
				if err := seeder.Clean(cmd.Context()); err != nil {
					return fmt.Errorf("clean failed: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "database cleaned")
				return nil
			}

			sum, err := seeder.Run(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("seed failed: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.Users, "users", "u", 20, "number of generated users")
	f.IntVarP(&opts.Captions, "captions", "c", 40, "number of generated captions")
	f.IntVar(&opts.MaxLikes, "max-likes", 10, "maximum likes per caption")
	f.IntVar(&opts.MaxDays, "max-days", 14, "spread created_at over this many days")
	f.Int64Var(&opts.Seed, "seed", 0, "random seed (0 picks one from the clock)")
	f.BoolVar(&opts.Clean, "clean", false, "delete existing rows before seeding")
	f.BoolVar(&opts.SkipFixtures, "skip-fixtures", false, "leave out the hand-written captions")
	f.StringVar(&opts.FixturesPath, "fixtures", "", "path to a fixtures YAML file")
	f.BoolVar(&applySchema, "apply-schema", false, "apply the schema before seeding")
	f.BoolVar(&cleanOnly, "clean-only", false, "delete existing rows and exit")

	return cmd
}

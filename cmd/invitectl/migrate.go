package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ms-invites/internal/database/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or inspect the tickets schema migrations",
}

func init() {
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, r *migrations.Runner, _ []string) error {
				return r.MigrateUp()
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, r *migrations.Runner, _ []string) error {
				return r.MigrateDown()
			}),
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down to VERSION",
			Args:  cobra.ExactArgs(1),
			RunE: withRunner(func(cmd *cobra.Command, r *migrations.Runner, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return r.MigrateTo(uint(version))
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied without running it",
			Args:  cobra.ExactArgs(1),
			RunE: withRunner(func(cmd *cobra.Command, r *migrations.Runner, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return r.Force(version)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied migration version",
			Args:  cobra.NoArgs,
			RunE: withRunner(func(cmd *cobra.Command, r *migrations.Runner, _ []string) error {
				version, dirty, err := r.Version()
				if err != nil {
					return err
				}
				if dirty {
					cmd.Printf("%d (dirty)\n", version)
				} else {
					cmd.Printf("%d\n", version)
				}
				return nil
			}),
		},
	)
	rootCmd.AddCommand(migrateCmd)
}

// withRunner opens the database for one migration command and closes it
// afterwards.
func withRunner(fn func(*cobra.Command, *migrations.Runner, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		bunDB, _, err := connect(cmd.Context(), newLogger())
		if err != nil {
			return err
		}
		runner := migrations.NewRunner(bunDB.DB)
		defer runner.Close()

		if err := fn(cmd, runner, args); err != nil {
			return err
		}
		if cmd.Name() != "version" {
			cmd.Printf("migrate %s: ok\n", cmd.Name())
		}
		return nil
	}
}

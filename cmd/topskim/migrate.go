package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/DickyChant/topskim/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "topskim.db", "SQLite database path")

	// withDB opens the database without applying migrations.
	withDB := func(fn func(cmd *cobra.Command, d *db.DB, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			d, err := db.OpenDB(dbPath)
			if err != nil {
				return err
			}
			defer d.Close()
			return fn(cmd, d, args)
		}
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			if err := d.MigrateUp(db.MigrationsFS()); err != nil {
				return fmt.Errorf("migration up failed: %w", err)
			}
			return printStatus(cmd, d)
		}),
	}
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back one migration",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			if err := d.MigrateDown(db.MigrationsFS()); err != nil {
				return fmt.Errorf("migration down failed: %w", err)
			}
			return printStatus(cmd, d)
		}),
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the applied and latest schema versions",
		Args:  cobra.NoArgs,
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, _ []string) error {
			return printStatus(cmd, d)
		}),
	}
	force := &cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations (recovery only)",
		Args:  cobra.ExactArgs(1),
		RunE: withDB(func(cmd *cobra.Command, d *db.DB, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version number: %s", args[0])
			}
			if err := d.MigrateForce(db.MigrationsFS(), v); err != nil {
				return fmt.Errorf("force version %d: %w", v, err)
			}
			return printStatus(cmd, d)
		}),
	}
	cmd.AddCommand(up, down, status, force)
	return cmd
}

func printStatus(cmd *cobra.Command, d *db.DB) error {
	s, err := d.Status(db.MigrationsFS())
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Current version: %d\n", s.Version)
	fmt.Fprintf(w, "Latest version:  %d\n", s.Latest)
	fmt.Fprintf(w, "Dirty: %v\n", s.Dirty)
	if s.Dirty {
		fmt.Fprintln(w, "A migration failed mid-execution; inspect the database, then run: topskim migrate force <version>")
	} else if s.Pending() {
		fmt.Fprintln(w, "Pending migrations; run: topskim migrate up")
	}
	return nil
}

package main

import (
	"fmt"
	"log"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/migrations"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(migrate.Up, 0)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(migrate.Down, steps)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")
	cmd.AddCommand(down)

	return cmd
}

func runMigrations(dir migrate.MigrationDirection, max int) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := migrate.ExecMax(db, "postgres", migrations.Source(), dir, max)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Printf("Applied %d migration(s)", n)
	return nil
}

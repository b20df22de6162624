package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/notes2gogo/backend/internal/infrastructure/clients/postgres"
	"github.com/notes2gogo/backend/migrations"
	"github.com/notes2gogo/backend/pkg/config"
)

var migrateTimeout time.Duration

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long:  `Connect with the DB_* environment settings and apply every embedded migration in one transaction.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
		defer cancel()

		client, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()

		all, err := migrations.All()
		if err != nil {
			return fmt.Errorf("failed to read migrations: %w", err)
		}
		return applyMigrations(ctx, client.DB(), all, cmd.OutOrStdout())
	},
}

func init() {
	migrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", 2*time.Minute, "give up after this long")
	rootCmd.AddCommand(migrateCmd)
}

// applyMigrations runs every migration in order and commits only if all succeed
func applyMigrations(ctx context.Context, db *sql.DB, all []migrations.Migration, out io.Writer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}

	for _, m := range all {
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			fmt.Fprintf(out, "%s %s\n", red("failed"), m.Name)
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		fmt.Fprintf(out, "%s %s\n", cyan("applied"), m.Name)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	fmt.Fprintf(out, "%s %d migration(s)\n", bold("done"), len(all))
	return nil
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/spf13/cobra"

	"github.com/notes2gogo/backend/internal/domain/entities"
	"github.com/notes2gogo/backend/internal/infrastructure/clients/postgres"
	"github.com/notes2gogo/backend/pkg/config"
)

var (
	seedUserID int64
	seedReset  bool
)

var pg = goqu.Dialect("postgres")

type sampleNote struct {
	title   string
	content string
	tags    []string
	age     time.Duration
}

var sampleNotes = []sampleNote{
	{title: "Weekly planning meeting", content: "Agenda: roadmap review, hiring, budget for Q3.", tags: []string{"work", "meetings"}, age: 2 * 24 * time.Hour},
	{title: "Grocery list", content: "milk, eggs, bread, coffee", tags: []string{"home"}, age: 40 * 24 * time.Hour},
	{title: "Budget draft", content: "Quarterly budget numbers still need sign-off from finance.", tags: []string{"work", "draft"}, age: 9 * 24 * time.Hour},
	{title: "Book notes: Deep Work", content: "Schedule focus blocks and batch shallow tasks.", tags: []string{"reading"}, age: 120 * 24 * time.Hour},
	{title: "Trip packing", content: "passport, charger, rain jacket", tags: []string{"travel", "home"}, age: 3 * time.Hour},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample notes for local development",
	Long:  `Insert a handful of tagged notes owned by --user so search can be tried end to end.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		clk, err := commandClock()
		if err != nil {
			return err
		}

		client, err := postgres.NewClient(cmd.Context(), &cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()

		return seedNotes(cmd.Context(), client.DB(), seedUserID, seedReset, clk.Now().UTC(), cmd.OutOrStdout())
	},
}

func init() {
	seedCmd.Flags().Int64Var(&seedUserID, "user", 1, "owner of the seeded notes")
	seedCmd.Flags().BoolVar(&seedReset, "reset", false, "truncate notes, tags, saved searches and analytics first")
	rootCmd.AddCommand(seedCmd)
}

func seedNotes(ctx context.Context, db *sql.DB, userID int64, reset bool, now time.Time, out io.Writer) error {
	if userID <= 0 {
		return fmt.Errorf("--user must be positive, got %d", userID)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if reset {
		fmt.Fprintln(out, faint("reset: truncating search tables"))
		if _, err := tx.ExecContext(ctx, `
			TRUNCATE TABLE
				note_tags,
				notes,
				tags,
				saved_searches,
				search_analytics
			RESTART IDENTITY CASCADE
		`); err != nil {
			return fmt.Errorf("failed to reset tables: %w", err)
		}
	}

	for _, n := range sampleNotes {
		noteID, err := insertNote(ctx, tx, userID, n, now)
		if err != nil {
			return err
		}
		for _, tag := range n.tags {
			if err := attachTag(ctx, tx, userID, noteID, tag); err != nil {
				return err
			}
		}
		fmt.Fprintf(out, "%s %d %s\n", cyan("note"), noteID, n.title)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	fmt.Fprintf(out, "%s %d note(s) for user %d\n", bold("seeded"), len(sampleNotes), userID)
	return nil
}

func insertNote(ctx context.Context, tx *sql.Tx, userID int64, n sampleNote, now time.Time) (int64, error) {
	created := now.Add(-n.age)
	query, args, err := pg.Insert("notes").
		Prepared(true).
		Rows(goqu.Record{
			"user_id":      userID,
			"title":        n.title,
			"note_type":    string(entities.NoteTypeText),
			"content_text": n.content,
			"created_at":   created,
			"updated_at":   created,
		}).
		Returning("id").
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build note insert: %w", err)
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert note %q: %w", n.title, err)
	}
	return id, nil
}

func attachTag(ctx context.Context, tx *sql.Tx, userID, noteID int64, tag string) error {
	query, args, err := pg.Insert("tags").
		Prepared(true).
		Rows(goqu.Record{"user_id": userID, "name": tag}).
		OnConflict(goqu.DoUpdate("user_id, name", goqu.Record{"name": goqu.L("EXCLUDED.name")})).
		Returning("id").
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build tag upsert: %w", err)
	}

	var tagID int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&tagID); err != nil {
		return fmt.Errorf("failed to upsert tag %q: %w", tag, err)
	}

	query, args, err = pg.Insert("note_tags").
		Prepared(true).
		Rows(goqu.Record{"note_id": noteID, "tag_id": tagID}).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return fmt.Errorf("failed to build note tag insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to tag note %d: %w", noteID, err)
	}
	return nil
}

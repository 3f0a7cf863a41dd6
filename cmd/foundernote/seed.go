package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/render"
	"github.com/jeanpaul/foundernote/internal/schema"
	"github.com/jeanpaul/foundernote/internal/store"
)

var seedSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"notes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"title"},
				"properties": map[string]any{
					"id":     map[string]any{"type": "string"},
					"title":  map[string]any{"type": "string"},
					"folder": map[string]any{"type": "string"},
					"tags":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
		},
		"todos": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"title"},
				"properties": map[string]any{
					"title":     map[string]any{"type": "string"},
					"completed": map[string]any{"type": "boolean"},
				},
			},
		},
	},
}

type seedFile struct {
	Notes []notes.Note `json:"notes"`
	Todos []notes.Todo `json:"todos"`
}

func newSeedCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Import notes and todos from a JSON export into the database",
		Long: `Import notes and todos from a JSON file of the form
{"notes": [...], "todos": [...]}. Records are upserted by id; records
without an id get a new one, and records without a user get --user.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := schema.NewValidator().Validate(seedSchema, raw); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			var f seedFile
			if err := json.Unmarshal(raw, &f); err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := fillSeed(&f, cfg.Client.UserID, time.Now()); err != nil {
				return err
			}

			if dbPath == "" {
				dbPath = cfg.Server.DBPath
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.ImportNotes(cmd.Context(), f.Notes); err != nil {
				return err
			}
			if err := st.ImportTodos(cmd.Context(), f.Todos); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.BannerStyle.Render(
				fmt.Sprintf("✓ imported %d notes and %d todos into %s", len(f.Notes), len(f.Todos), dbPath)))
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}

// fillSeed assigns missing ids, owners and timestamps.
func fillSeed(f *seedFile, userID string, now time.Time) error {
	for i := range f.Notes {
		n := &f.Notes[i]
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.UserID == "" {
			n.UserID = userID
		}
		if n.UserID == "" {
			return fmt.Errorf("note %q has no user: pass --user", n.Title)
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		if n.UpdatedAt.IsZero() {
			n.UpdatedAt = n.CreatedAt
		}
	}
	for i := range f.Todos {
		t := &f.Todos[i]
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.UserID == "" {
			t.UserID = userID
		}
		if t.UserID == "" {
			return fmt.Errorf("todo %q has no user: pass --user", t.Title)
		}
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}
	}
	return nil
}

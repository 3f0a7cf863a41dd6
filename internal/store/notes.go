package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/scope"
)

// ErrNoteNotFound is returned by Note for an unknown id.
var ErrNoteNotFound = errors.New("note not found")

const noteColumns = `id, user_id, title, folder, tags, summary, key_points,
	transcription, smartified_text, created_at, updated_at`

// ListNotes returns the user's notes matching sel, newest first.
func (s *Store) ListNotes(ctx context.Context, userID string, sel scope.Selector) ([]notes.Note, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	switch sel.Kind {
	case scope.KindFolder:
		where = append(where, "folder = ?")
		args = append(args, sel.Folder)
	case scope.KindTag:
		where = append(where, "EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)")
		args = append(args, sel.Tag)
	case scope.KindNote:
		where = append(where, "id = ?")
		args = append(args, sel.NoteID)
	case scope.KindGlobal:
	default:
		return nil, fmt.Errorf("%w %q", scope.ErrUnknownKind, sel.Kind)
	}

	query := "SELECT " + noteColumns + " FROM notes WHERE " + strings.Join(where, " AND ") +
		" ORDER BY created_at DESC"
	if sel.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, sel.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	out := []notes.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Note returns one of the user's notes.
func (s *Store) Note(ctx context.Context, userID, id string) (notes.Note, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+noteColumns+" FROM notes WHERE user_id = ? AND id = ?", userID, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notes.Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, id)
	}
	return n, err
}

// ListTodos returns the user's todos, newest first, with their note titles.
func (s *Store) ListTodos(ctx context.Context, userID string) ([]notes.Todo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, COALESCE(t.note_id, ''), COALESCE(n.title, ''),
		       t.title, t.completed, t.created_at
		FROM todos t LEFT JOIN notes n ON n.id = t.note_id
		WHERE t.user_id = ?
		ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	out := []notes.Todo{}
	for rows.Next() {
		var (
			t       notes.Todo
			created string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.NoteID, &t.NoteTitle, &t.Title, &t.Completed, &created); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("todo %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ImportNotes upserts notes written by the note service.
func (s *Store) ImportNotes(ctx context.Context, list []notes.Note) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, n := range list {
		tags, err := encodeStrings(n.Tags)
		if err != nil {
			return fmt.Errorf("note %s tags: %w", n.ID, err)
		}
		points, err := encodeStrings(n.KeyPoints)
		if err != nil {
			return fmt.Errorf("note %s key points: %w", n.ID, err)
		}
		created := n.CreatedAt
		if created.IsZero() {
			created = s.now()
		}
		updated := n.UpdatedAt
		if updated.IsZero() {
			updated = created
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title, folder = excluded.folder, tags = excluded.tags,
				summary = excluded.summary, key_points = excluded.key_points,
				transcription = excluded.transcription, smartified_text = excluded.smartified_text,
				updated_at = excluded.updated_at`,
			n.ID, n.UserID, n.Title, n.Folder, tags, n.Summary, points,
			n.Transcription, n.SmartifiedText, formatTime(created), formatTime(updated))
		if err != nil {
			return fmt.Errorf("failed to import note %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

// ImportTodos upserts todos written by the note service.
func (s *Store) ImportTodos(ctx context.Context, list []notes.Todo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, t := range list {
		created := t.CreatedAt
		if created.IsZero() {
			created = s.now()
		}
		var noteID any
		if t.NoteID != "" {
			noteID = t.NoteID
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO todos (id, user_id, note_id, title, completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				note_id = excluded.note_id, title = excluded.title, completed = excluded.completed`,
			t.ID, t.UserID, noteID, t.Title, t.Completed, formatTime(created))
		if err != nil {
			return fmt.Errorf("failed to import todo %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (notes.Note, error) {
	var (
		n                      notes.Note
		tags, points           string
		createdStr, updatedStr string
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Folder, &tags, &n.Summary, &points,
		&n.Transcription, &n.SmartifiedText, &createdStr, &updatedStr)
	if err != nil {
		return notes.Note{}, err
	}
	if err := json.Unmarshal([]byte(tags), &n.Tags); err != nil {
		return notes.Note{}, fmt.Errorf("note %s tags: %w", n.ID, err)
	}
	if err := json.Unmarshal([]byte(points), &n.KeyPoints); err != nil {
		return notes.Note{}, fmt.Errorf("note %s key points: %w", n.ID, err)
	}
	if n.CreatedAt, err = parseTime(createdStr); err != nil {
		return notes.Note{}, fmt.Errorf("note %s: %w", n.ID, err)
	}
	if n.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return notes.Note{}, fmt.Errorf("note %s: %w", n.ID, err)
	}
	return n, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// encodeStrings renders a list column as a JSON array, never null.
func encodeStrings(s []string) (string, error) {
	b, err := json.Marshal(nonNil(s))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

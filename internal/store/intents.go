package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jeanpaul/foundernote/internal/intent"
)

var _ intent.Store = (*Store)(nil)

const intentColumns = `id, user_id, raw_text, normalized_intent, intent_type, source_type,
	source_id, source_title, context_scope, context_value, folder, tags, status,
	created_at, completed_at`

// Create inserts a new active intent, assigning id and creation time when unset.
func (s *Store) Create(ctx context.Context, in intent.Intent) (intent.Intent, error) {
	if in.UserID == "" {
		return intent.Intent{}, errors.New("intent has no user")
	}
	if in.RawText == "" {
		return intent.Intent{}, errors.New("intent has no text")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now()
	}
	in.CreatedAt = in.CreatedAt.UTC()
	if in.IntentType == "" {
		in.IntentType = intent.TypeRemember
	}
	if in.SourceType == "" {
		in.SourceType = intent.SourceChat
	}
	if in.ContextScope == "" {
		in.ContextScope = "global"
	}
	in.Tags = nonNil(in.Tags)
	in.Status = intent.StatusActive
	in.CompletedAt = nil

	tags, err := encodeStrings(in.Tags)
	if err != nil {
		return intent.Intent{}, fmt.Errorf("encode intent tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO intents (`+intentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		in.ID, in.UserID, in.RawText, in.NormalizedIntent, string(in.IntentType), string(in.SourceType),
		in.SourceID, in.SourceTitle, in.ContextScope, in.ContextValue, in.Folder, tags,
		string(in.Status), formatTime(in.CreatedAt))
	if err != nil {
		return intent.Intent{}, fmt.Errorf("failed to create intent: %w", err)
	}
	return in, nil
}

// List returns the user's intents, newest first.
func (s *Store) List(ctx context.Context, f intent.Filter) ([]intent.Intent, error) {
	status := f.Status
	if status == "" {
		status = intent.StatusActive
	}
	limit := f.Limit
	if limit <= 0 {
		limit = intent.DefaultListLimit
	}

	query := "SELECT " + intentColumns + " FROM intents WHERE user_id = ?"
	args := []any{f.UserID}
	if status != intent.StatusAll {
		if _, err := intent.ParseStatus(string(status)); err != nil {
			return nil, err
		}
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query intents: %w", err)
	}
	defer rows.Close()

	out := []intent.Intent{}
	for rows.Next() {
		in, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

// SetStatus moves one of the user's intents to status. Done statuses stamp
// completed_at; active clears it.
func (s *Store) SetStatus(ctx context.Context, userID, id string, status intent.Status) (intent.Intent, error) {
	if _, err := intent.ParseStatus(string(status)); err != nil {
		return intent.Intent{}, err
	}

	var completedAt any
	if status.Done() {
		completedAt = formatTime(s.now())
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE intents SET status = ?, completed_at = ? WHERE id = ? AND user_id = ?`,
		string(status), completedAt, id, userID)
	if err != nil {
		return intent.Intent{}, fmt.Errorf("failed to update intent: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return intent.Intent{}, fmt.Errorf("%w: %s", intent.ErrNotFound, id)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+intentColumns+" FROM intents WHERE id = ? AND user_id = ?", id, userID)
	in, err := scanIntent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return intent.Intent{}, fmt.Errorf("%w: %s", intent.ErrNotFound, id)
	}
	return in, err
}

// ClearUser deletes every intent and cached digest belonging to the user.
func (s *Store) ClearUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM intents WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear intents: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM synthesis_cache WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to clear digest cache: %w", err)
	}
	return tx.Commit()
}

func scanIntent(row scanner) (intent.Intent, error) {
	var (
		in                       intent.Intent
		intentType, sourceType   string
		status, tags, createdStr string
		completedStr             sql.NullString
	)
	err := row.Scan(&in.ID, &in.UserID, &in.RawText, &in.NormalizedIntent, &intentType, &sourceType,
		&in.SourceID, &in.SourceTitle, &in.ContextScope, &in.ContextValue, &in.Folder, &tags,
		&status, &createdStr, &completedStr)
	if err != nil {
		return intent.Intent{}, err
	}
	in.IntentType = intent.Type(intentType)
	in.SourceType = intent.SourceType(sourceType)
	in.Status = intent.Status(status)
	if err := json.Unmarshal([]byte(tags), &in.Tags); err != nil {
		return intent.Intent{}, fmt.Errorf("intent %s tags: %w", in.ID, err)
	}
	if in.CreatedAt, err = parseTime(createdStr); err != nil {
		return intent.Intent{}, fmt.Errorf("intent %s: %w", in.ID, err)
	}
	if completedStr.Valid {
		t, err := parseTime(completedStr.String)
		if err != nil {
			return intent.Intent{}, fmt.Errorf("intent %s: %w", in.ID, err)
		}
		in.CompletedAt = &t
	}
	return in, nil
}

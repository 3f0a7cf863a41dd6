package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jeanpaul/foundernote/internal/synthesis"
)

// LoadSnapshot returns the cached digest for a scope, if any.
func (s *Store) LoadSnapshot(ctx context.Context, userID, kind, value string) (synthesis.Snapshot, bool, error) {
	var (
		snap       synthesis.Snapshot
		body       string
		updatedStr string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT content_hash, synthesis, note_count, updated_at FROM synthesis_cache
		WHERE user_id = ? AND scope_type = ? AND scope_value = ?`,
		userID, kind, value).Scan(&snap.ContentHash, &body, &snap.NoteCount, &updatedStr)
	if errors.Is(err, sql.ErrNoRows) {
		return synthesis.Snapshot{}, false, nil
	}
	if err != nil {
		return synthesis.Snapshot{}, false, fmt.Errorf("failed to load digest: %w", err)
	}
	if err := json.Unmarshal([]byte(body), &snap.Result); err != nil {
		return synthesis.Snapshot{}, false, fmt.Errorf("corrupt cached digest: %w", err)
	}
	if snap.UpdatedAt, err = parseTime(updatedStr); err != nil {
		return synthesis.Snapshot{}, false, err
	}
	snap.UserID, snap.ScopeKind, snap.ScopeValue = userID, kind, value
	snap.Result = snap.Result.Clone()
	return snap, true, nil
}

// SaveSnapshot upserts the digest for its scope.
func (s *Store) SaveSnapshot(ctx context.Context, snap synthesis.Snapshot) error {
	body, err := json.Marshal(snap.Result.Clone())
	if err != nil {
		return err
	}
	updated := snap.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO synthesis_cache (user_id, scope_type, scope_value, content_hash, synthesis, note_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, scope_type, scope_value) DO UPDATE SET
			content_hash = excluded.content_hash, synthesis = excluded.synthesis,
			note_count = excluded.note_count, updated_at = excluded.updated_at`,
		snap.UserID, snap.ScopeKind, snap.ScopeValue, snap.ContentHash, string(body),
		snap.NoteCount, formatTime(updated))
	if err != nil {
		return fmt.Errorf("failed to save digest: %w", err)
	}
	return nil
}

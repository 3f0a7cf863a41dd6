// Package intent defines Intents: things the user explicitly asked the
// assistant to remember. They are created only from a detected trigger,
// change only through status transitions, and are deleted only when the
// user clears all their data.
package intent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// StatusAll is a list filter, never a stored status.
const StatusAll Status = "all"

// Done reports whether the status belongs in the completed collection.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusArchived
}

// ParseStatus accepts a stored status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusCompleted, StatusArchived:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Type classifies what was captured.
type Type string

const (
	TypeRemember Type = "remember"
	TypeTodo     Type = "todo"
	TypeFollowUp Type = "follow-up"
)

// ParseType maps free-form model output to a Type, defaulting to remember.
func ParseType(s string) Type {
	switch t := Type(s); t {
	case TypeTodo, TypeFollowUp:
		return t
	case "followup", "follow_up":
		return TypeFollowUp
	}
	return TypeRemember
}

type SourceType string

const (
	SourceChat SourceType = "chat"
	SourceNote SourceType = "note"
)

type Intent struct {
	ID               string     `json:"id"`
	UserID           string     `json:"userId"`
	RawText          string     `json:"rawText"`
	NormalizedIntent string     `json:"normalizedIntent"`
	IntentType       Type       `json:"intentType"`
	SourceType       SourceType `json:"sourceType"`
	SourceID         string     `json:"sourceId,omitempty"`
	SourceTitle      string     `json:"sourceTitle,omitempty"`
	ContextScope     string     `json:"contextScope"`
	ContextValue     string     `json:"contextValue,omitempty"`
	Folder           string     `json:"folder,omitempty"`
	Tags             []string   `json:"tags"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// Text is what the intent shows as: the normalized form, else the raw text.
func (i Intent) Text() string {
	if i.NormalizedIntent != "" {
		return i.NormalizedIntent
	}
	return i.RawText
}

// WithStatus returns a copy moved to status at the given time.
func (i Intent) WithStatus(status Status, at time.Time) Intent {
	i.Status = status
	if status.Done() {
		t := at
		i.CompletedAt = &t
	} else {
		i.CompletedAt = nil
	}
	i.Tags = append([]string{}, i.Tags...)
	return i
}

var (
	ErrNotFound      = errors.New("intent not found")
	ErrInvalidStatus = errors.New("invalid intent status")
)

// Filter selects intents for List. Status "" means active.
type Filter struct {
	UserID string
	Status Status
	Limit  int
}

// DefaultListLimit applies when a Filter has no limit.
const DefaultListLimit = 50

// Store persists intents server-side.
type Store interface {
	Create(ctx context.Context, in Intent) (Intent, error)
	List(ctx context.Context, f Filter) ([]Intent, error)
	SetStatus(ctx context.Context, userID, id string, status Status) (Intent, error)
	ClearUser(ctx context.Context, userID string) error
}

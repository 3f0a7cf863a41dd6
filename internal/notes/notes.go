// Package notes holds the note and todo records owned by the note service.
// Creating and editing them happens elsewhere; this module only reads them.
package notes

import "time"

// Note is a transcribed voice note.
type Note struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Title          string    `json:"title"`
	Folder         string    `json:"folder,omitempty"`
	Tags           []string  `json:"tags"`
	Summary        string    `json:"summary,omitempty"`
	KeyPoints      []string  `json:"keyPoints,omitempty"`
	Transcription  string    `json:"transcription,omitempty"`
	SmartifiedText string    `json:"smartifiedText,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Body returns the best available text for the note.
func (n Note) Body() string {
	if n.SmartifiedText != "" {
		return n.SmartifiedText
	}
	return n.Transcription
}

// HasTag reports whether the note carries tag.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Todo is an action item extracted from a note.
type Todo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	NoteID    string    `json:"noteId,omitempty"`
	NoteTitle string    `json:"noteTitle,omitempty"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

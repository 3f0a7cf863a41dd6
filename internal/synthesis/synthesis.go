// Package synthesis defines the "what's on my mind" digest and turns raw
// model output into a well-formed one.
package synthesis

import "time"

// MaxPerCategory bounds each category of a digest.
const MaxPerCategory = 5

// Item is one fragment, optionally traceable to the note it came from.
type Item struct {
	Text      string `json:"text"`
	NoteID    string `json:"noteId,omitempty"`
	NoteTitle string `json:"noteTitle,omitempty"`
}

// Theme is a topic that recurs across notes.
type Theme struct {
	Text      string `json:"text"`
	NoteCount int    `json:"noteCount,omitempty"`
}

// Result is a digest. Empty categories are valid: a clear mind is a real answer.
type Result struct {
	OpenThoughts []Item  `json:"openThoughts"`
	Ideas        []Item  `json:"ideas"`
	Questions    []Item  `json:"questions"`
	Decisions    []Item  `json:"decisions"`
	Blockers     []Item  `json:"blockers"`
	Themes       []Theme `json:"themes"`
}

// Empty returns a digest with every category present and empty.
func Empty() Result {
	return Result{
		OpenThoughts: []Item{},
		Ideas:        []Item{},
		Questions:    []Item{},
		Decisions:    []Item{},
		Blockers:     []Item{},
		Themes:       []Theme{},
	}
}

// IsEmpty reports whether no category has content.
func (r Result) IsEmpty() bool {
	return len(r.OpenThoughts)+len(r.Ideas)+len(r.Questions)+
		len(r.Decisions)+len(r.Blockers)+len(r.Themes) == 0
}

// Clone returns a deep copy with nil categories replaced by empty ones.
func (r Result) Clone() Result {
	return Result{
		OpenThoughts: cloneItems(r.OpenThoughts),
		Ideas:        cloneItems(r.Ideas),
		Questions:    cloneItems(r.Questions),
		Decisions:    cloneItems(r.Decisions),
		Blockers:     cloneItems(r.Blockers),
		Themes:       append([]Theme{}, r.Themes...),
	}
}

func cloneItems(items []Item) []Item {
	return append([]Item{}, items...)
}

// Sections lists the item categories in display order.
func (r Result) Sections() []Section {
	return []Section{
		{Title: "Open Thoughts", Items: r.OpenThoughts},
		{Title: "Decisions", Items: r.Decisions},
		{Title: "Questions", Items: r.Questions},
		{Title: "Blockers", Items: r.Blockers},
		{Title: "Ideas", Items: r.Ideas},
	}
}

type Section struct {
	Title string
	Items []Item
}

// Snapshot is a digest as stored by the server-side cache.
type Snapshot struct {
	UserID      string
	ScopeKind   string
	ScopeValue  string
	ContentHash string
	Result      Result
	NoteCount   int
	UpdatedAt   time.Time
}

// Package actions merges pending todos and active intents into the single
// "Actions" list, with numbered citations of the notes they came from.
package actions

import (
	"sort"
	"time"

	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
)

// MaxItems caps the merged list.
const MaxItems = 20

type ItemType string

const (
	TypeTodo   ItemType = "todo"
	TypeIntent ItemType = "intent"
)

// Item is one row of the list. It is rebuilt on every render.
type Item struct {
	Type         ItemType    `json:"type"`
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	SourceNoteID string      `json:"sourceNoteId,omitempty"`
	SourceTitle  string      `json:"sourceTitle,omitempty"`
	IntentType   intent.Type `json:"intentType,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// Citation numbers a source note. Index 1 is the oldest cited note.
type Citation struct {
	Index     int       `json:"index"`
	NoteID    string    `json:"noteId"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type List struct {
	Items     []Item
	Citations map[string]Citation
}

// CitationFor returns the citation of the note an item came from.
func (l List) CitationFor(it Item) (Citation, bool) {
	if it.SourceNoteID == "" {
		return Citation{}, false
	}
	c, ok := l.Citations[it.SourceNoteID]
	return c, ok
}

// OrderedCitations returns citations by index.
func (l List) OrderedCitations() []Citation {
	out := make([]Citation, 0, len(l.Citations))
	for _, c := range l.Citations {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Build keeps the order of its inputs: pending todos first, then active
// intents, truncated to MaxItems. Completed todos and intents without text
// are skipped. Citation numbers follow note creation time instead, so they
// stay put while the underlying notes do.
func Build(todos []notes.Todo, intents []intent.Intent, noteList []notes.Note) List {
	items := make([]Item, 0, MaxItems)
	for _, t := range todos {
		if t.Completed {
			continue
		}
		items = append(items, Item{
			Type:         TypeTodo,
			ID:           t.ID,
			Text:         t.Title,
			SourceNoteID: t.NoteID,
			SourceTitle:  t.NoteTitle,
			CreatedAt:    t.CreatedAt,
		})
	}
	for _, in := range intents {
		if in.Text() == "" || in.Status.Done() {
			continue
		}
		items = append(items, Item{
			Type:         TypeIntent,
			ID:           in.ID,
			Text:         in.Text(),
			SourceNoteID: in.SourceID,
			SourceTitle:  in.SourceTitle,
			IntentType:   in.IntentType,
			CreatedAt:    in.CreatedAt,
		})
	}
	if len(items) > MaxItems {
		items = items[:MaxItems]
	}

	return List{Items: items, Citations: cite(items, noteList)}
}

func cite(items []Item, noteList []notes.Note) map[string]Citation {
	byID := make(map[string]notes.Note, len(noteList))
	for _, n := range noteList {
		byID[n.ID] = n
	}

	var sources []Citation
	seen := map[string]bool{}
	for _, it := range items {
		if it.SourceNoteID == "" || seen[it.SourceNoteID] {
			continue
		}
		seen[it.SourceNoteID] = true
		c := Citation{NoteID: it.SourceNoteID, Title: it.SourceTitle}
		if n, ok := byID[it.SourceNoteID]; ok {
			c.Summary = n.Summary
			c.CreatedAt = n.CreatedAt
			if c.Title == "" {
				c.Title = n.Title
			}
		}
		sources = append(sources, c)
	}

	// Unknown notes have a zero time and sort first; ties fall back to id.
	sort.SliceStable(sources, func(i, j int) bool {
		if !sources[i].CreatedAt.Equal(sources[j].CreatedAt) {
			return sources[i].CreatedAt.Before(sources[j].CreatedAt)
		}
		return sources[i].NoteID < sources[j].NoteID
	})

	out := make(map[string]Citation, len(sources))
	for i, c := range sources {
		c.Index = i + 1
		out[c.NoteID] = c
	}
	return out
}

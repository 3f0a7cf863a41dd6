package actions

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
)

var t0 = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func TestBuild_CitationsFollowNoteCreationOrder(t *testing.T) {
	noteX := notes.Note{ID: "x", Title: "Board prep", CreatedAt: t0}
	noteY := notes.Note{ID: "y", Title: "Hiring", CreatedAt: t0.Add(48 * time.Hour)}

	// Items referencing the newer note come first in the list.
	todos := []notes.Todo{
		{ID: "t1", Title: "Draft JD", NoteID: "y", NoteTitle: "Hiring", CreatedAt: t0.Add(50 * time.Hour)},
		{ID: "t2", Title: "Send deck", NoteID: "x", NoteTitle: "Board prep", CreatedAt: t0.Add(time.Hour)},
	}
	intents := []intent.Intent{
		{ID: "i1", NormalizedIntent: "Ask Sam about referrals", SourceID: "y", SourceTitle: "Hiring", Status: intent.StatusActive},
		{ID: "i2", NormalizedIntent: "Board wants churn numbers", SourceID: "x", SourceTitle: "Board prep", Status: intent.StatusActive},
		{ID: "i3", RawText: "Remy remember to stretch", Status: intent.StatusActive},
	}

	list := Build(todos, intents, []notes.Note{noteY, noteX})

	require.Len(t, list.Items, 5)
	require.Len(t, list.Citations, 2)
	for _, it := range list.Items {
		c, ok := list.CitationFor(it)
		switch it.SourceNoteID {
		case "x":
			require.True(t, ok)
			assert.Equal(t, 1, c.Index, it.ID)
		case "y":
			require.True(t, ok)
			assert.Equal(t, 2, c.Index, it.ID)
		default:
			assert.False(t, ok)
		}
	}

	ordered := list.OrderedCitations()
	assert.Equal(t, "x", ordered[0].NoteID)
	assert.Equal(t, "y", ordered[1].NoteID)
}

func TestBuild_OrderAndFiltering(t *testing.T) {
	todos := []notes.Todo{
		{ID: "t1", Title: "first"},
		{ID: "t2", Title: "done", Completed: true},
		{ID: "t3", Title: "second"},
	}
	intents := []intent.Intent{
		{ID: "i1", NormalizedIntent: "third", IntentType: intent.TypeFollowUp, Status: intent.StatusActive},
		{ID: "i2", Status: intent.StatusActive},
		{ID: "i3", RawText: "fourth", Status: intent.StatusActive},
		{ID: "i4", NormalizedIntent: "finished", Status: intent.StatusCompleted},
	}

	list := Build(todos, intents, nil)

	var got []string
	for _, it := range list.Items {
		got = append(got, it.Text)
	}
	assert.Equal(t, []string{"first", "second", "third", "fourth"}, got)
	assert.Equal(t, TypeTodo, list.Items[1].Type)
	assert.Equal(t, TypeIntent, list.Items[2].Type)
	assert.Equal(t, intent.TypeFollowUp, list.Items[2].IntentType)
	assert.Empty(t, list.Citations)
}

func TestBuild_CapsAtMaxItems(t *testing.T) {
	var todos []notes.Todo
	for i := 0; i < 15; i++ {
		todos = append(todos, notes.Todo{ID: fmt.Sprintf("t%d", i), Title: "todo", NoteID: fmt.Sprintf("n%d", i)})
	}
	var intents []intent.Intent
	for i := 0; i < 10; i++ {
		intents = append(intents, intent.Intent{ID: fmt.Sprintf("i%d", i), NormalizedIntent: "intent", Status: intent.StatusActive, SourceID: "late"})
	}

	list := Build(todos, intents, nil)
	require.Len(t, list.Items, MaxItems)
	assert.Equal(t, "t0", list.Items[0].ID)
	assert.Equal(t, "i4", list.Items[MaxItems-1].ID)
	_, cited := list.Citations["late"]
	assert.True(t, cited)
	assert.Len(t, list.Citations, 16, "only notes of kept items are cited")
}

func TestBuild_TitleFallsBackToNote(t *testing.T) {
	list := Build(
		[]notes.Todo{{ID: "t1", Title: "x", NoteID: "n1"}},
		nil,
		[]notes.Note{{ID: "n1", Title: "Weekly sync", Summary: "Talked roadmap", CreatedAt: t0}},
	)
	c := list.Citations["n1"]
	assert.Equal(t, "Weekly sync", c.Title)
	assert.Equal(t, "Talked roadmap", c.Summary)
	assert.Equal(t, 1, c.Index)
}

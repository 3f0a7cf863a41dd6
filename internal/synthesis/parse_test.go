package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	raw := `{
	  "openThoughts": [{"text": "Should we raise now?", "noteTitle": "Fundraising", "noteId": null}],
	  "decisions": [],
	  "questions": null,
	  "themes": [{"text": "Hiring", "noteCount": 3}]
	}`

	r, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, []Item{{Text: "Should we raise now?", NoteTitle: "Fundraising"}}, r.OpenThoughts)
	assert.Equal(t, []Theme{{Text: "Hiring", NoteCount: 3}}, r.Themes)
	assert.NotNil(t, r.Questions, "null category becomes empty")
	assert.NotNil(t, r.Blockers, "missing category becomes empty")
	assert.Empty(t, r.Blockers)
}

func TestParse_MalformedFallsBackToEmpty(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not find anything.",
		`{"ideas": "lots"}`,
		`{"ideas": [{"noteTitle": "x"}]}`,
	} {
		r, err := Parse(raw)
		assert.Error(t, err, raw)
		assert.Equal(t, Empty(), r, raw)
	}
}

func TestParse_FencedJSON(t *testing.T) {
	r, err := Parse("```json\n{\"ideas\": [{\"text\": \"Referral program\"}]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Referral program", r.Ideas[0].Text)
}

func TestParse_CapsCategories(t *testing.T) {
	var items []string
	for i := 0; i < 9; i++ {
		items = append(items, fmt.Sprintf(`{"text": "idea %d"}`, i))
	}
	r, err := Parse(`{"ideas": [` + strings.Join(items, ",") + `]}`)
	require.NoError(t, err)
	assert.Len(t, r.Ideas, MaxPerCategory)
}

func TestEmpty_SerializesArrays(t *testing.T) {
	b, err := json.Marshal(Empty())
	require.NoError(t, err)
	assert.JSONEq(t, `{"openThoughts":[],"ideas":[],"questions":[],"decisions":[],"blockers":[],"themes":[]}`, string(b))
	assert.True(t, Empty().IsEmpty())
}

func TestResolveNoteIDs(t *testing.T) {
	r := Empty()
	r.Blockers = []Item{
		{Text: "No designer", NoteTitle: "Team", NoteID: "made-up"},
		{Text: "Unknown source", NoteTitle: "Missing"},
	}
	r.ResolveNoteIDs(map[string]string{"Team": "n-42"})
	assert.Equal(t, "n-42", r.Blockers[0].NoteID)
	assert.Equal(t, "", r.Blockers[1].NoteID)
}

func TestClone_IsDeep(t *testing.T) {
	r := Empty()
	r.Ideas = []Item{{Text: "a"}}
	c := r.Clone()
	c.Ideas[0].Text = "b"
	assert.Equal(t, "a", r.Ideas[0].Text)
}

package scope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/foundernote/internal/notes"
)

func TestKey_StructurallyEqualDescriptorsShareKey(t *testing.T) {
	tests := []struct {
		name string
		a, b Descriptor
	}{
		{"global", Global(), Descriptor{Kind: KindGlobal}},
		{"folder", Folder("Work"), Descriptor{Folder: "Work", Kind: KindFolder}},
		{"tag", Tag("launch"), Tag("launch")},
		{"note title ignored", Note("n1", "Old title"), Note("n1", "New title")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, err := tt.a.Key()
			require.NoError(t, err)
			kb, err := tt.b.Key()
			require.NoError(t, err)
			assert.Equal(t, ka, kb)
		})
	}
}

// A note scope is identified by its id alone. The title is display metadata
// that can change under a cached digest, so two descriptors differing only in
// title deliberately share a key.
func TestKey_NoteKeyIgnoresTitle(t *testing.T) {
	a, err := Note("n1", "Pitch").Key()
	require.NoError(t, err)
	b, err := Note("n1", "Pitch v2").Key()
	require.NoError(t, err)
	assert.Equal(t, "note:n1", a)
	assert.Equal(t, "note:n1", b)
}

func TestKey_DistinctScopesNeverCollide(t *testing.T) {
	descs := []Descriptor{
		Global(),
		Folder("global"),
		Tag("global"),
		Folder("work"),
		Tag("work"),
		Note("work", ""),
		Folder("tag:work"),
		Tag("folder:work"),
		Folder("Work"),
		Folder("work "),
	}
	seen := map[string]Descriptor{}
	for _, d := range descs {
		k, err := d.Key()
		require.NoError(t, err)
		if prev, ok := seen[k]; ok {
			t.Fatalf("key %q shared by %+v and %+v", k, prev, d)
		}
		seen[k] = d
	}
}

func TestKey_UnknownKindFailsFast(t *testing.T) {
	_, err := Descriptor{Kind: "project"}.Key()
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = Descriptor{}.Key()
	assert.ErrorIs(t, err, ErrUnknownKind, "empty kind is not silently global")

	assert.Panics(t, func() { Descriptor{Kind: "bogus"}.MustKey() })
}

func TestKey_MissingValue(t *testing.T) {
	_, err := Folder("").Key()
	assert.ErrorIs(t, err, ErrIncomplete)
	_, err = Note("", "title").Key()
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestSelector_Match(t *testing.T) {
	n := notes.Note{ID: "n1", Folder: "Work", Tags: []string{"launch", "q3"}}

	cases := []struct {
		d    Descriptor
		want bool
	}{
		{Global(), true},
		{Folder("Work"), true},
		{Folder("Home"), false},
		{Tag("q3"), true},
		{Tag("q4"), false},
		{Note("n1", ""), true},
		{Note("n2", ""), false},
	}
	for _, c := range cases {
		sel, err := c.d.Selector()
		require.NoError(t, err)
		assert.Equal(t, c.want, sel.Match(n), "%+v", c.d)
	}

	sel, err := Global().Selector()
	require.NoError(t, err)
	assert.Equal(t, GlobalLimit, sel.Limit)
}

func TestDescriptor_JSONShape(t *testing.T) {
	var d Descriptor
	require.NoError(t, json.Unmarshal([]byte(`{"type":"tag","tag":"ideas"}`), &d))
	assert.Equal(t, Tag("ideas"), d)
	assert.Equal(t, "tag:ideas", d.MustKey())
	assert.Equal(t, `notes tagged "ideas"`, d.Describe())
}

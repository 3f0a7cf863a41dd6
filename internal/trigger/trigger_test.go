package trigger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	d := Default()

	tests := []struct {
		name       string
		message    string
		triggered  bool
		text       string
		suppressed bool
	}{
		{
			name:      "address then imperative",
			message:   "Hey Remy, remember this: ship the landing page by Friday",
			triggered: true,
			text:      "ship the landing page by Friday",
		},
		{
			name:      "dont forget",
			message:   "Remy, don't forget the investor call",
			triggered: true,
			text:      "the investor call",
		},
		{
			name:      "plain question",
			message:   "What's the weather",
			triggered: false,
		},
		{
			name:       "address only",
			message:    "Hey Remy",
			triggered:  true,
			text:       "",
			suppressed: true,
		},
		{
			name:      "remember that",
			message:   "remy remember that the deck is due Monday",
			triggered: true,
			text:      "the deck is due Monday",
		},
		{
			name:      "case insensitive with padding",
			message:   "   REMY: KEEP IN MIND pricing is per seat  ",
			triggered: true,
			text:      "pricing is per seat",
		},
		{
			name:      "at mention",
			message:   "@remy call the lawyer back",
			triggered: true,
			text:      "call the lawyer back",
		},
		{
			name:      "save this with colon",
			message:   "Remy, save this: hiring plan v2",
			triggered: true,
			text:      "hiring plan v2",
		},
		{
			name:      "curly apostrophe",
			message:   "Remy don’t forget to renew the domain",
			triggered: true,
			text:      "to renew the domain",
		},
		{
			name:       "short payload suppressed",
			message:    "Remy, note this: ok",
			triggered:  true,
			text:       "ok",
			suppressed: true,
		},
		{
			name:      "not anchored",
			message:   "I told Remy to remember the milk",
			triggered: false,
		},
		{
			name:      "name prefix of another word",
			message:   "Remyx remember this: nothing",
			triggered: false,
		},
		{
			name:      "hey remy keeps the rest verbatim",
			message:   "Hey Remy, the board meeting moved to Thursday",
			triggered: true,
			text:      "the board meeting moved to Thursday",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.Detect(tt.message)
			assert.Equal(t, tt.triggered, got.Triggered)
			assert.Equal(t, tt.text, got.Text)
			assert.Equal(t, tt.suppressed, got.Suppressed())
			assert.Equal(t, tt.triggered && !tt.suppressed, got.Storable())
		})
	}
}

func TestDetect_FirstMatchWins(t *testing.T) {
	table, err := ParseTable([]byte(`
rules:
  - name: broad
    pattern: '^remy\b[,:]?\s*'
  - name: narrow
    pattern: '^remy\s+remember\b'
    strip: connector
`))
	require.NoError(t, err)

	got := New(table).Detect("Remy remember the keys")
	assert.Equal(t, "broad", got.Rule)
	assert.Equal(t, "remember the keys", got.Text)
}

func TestDetect_ReportsRule(t *testing.T) {
	got := Default().Detect("hey remy, don't forget: expense report")
	assert.Equal(t, "hey-remy+dont-forget", got.Rule)
	assert.Equal(t, "expense report", got.Text)
}

func TestParseTable_Errors(t *testing.T) {
	_, err := ParseTable([]byte(`rules: []`))
	assert.Error(t, err)

	_, err = ParseTable([]byte(`
rules:
  - name: bad
    pattern: '^(remy'
`))
	assert.Error(t, err)

	_, err = ParseTable([]byte(`
rules:
  - name: ok
    pattern: '^remy'
    strip: everything
`))
	assert.Error(t, err)
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "triggers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
min_payload: 3
rules:
  - name: jot
    pattern: '^jot\s+down\b'
    strip: connector
`), 0644))

	table, err := LoadTable(path)
	require.NoError(t, err)
	assert.Equal(t, 3, table.MinPayload)

	got := New(table).Detect("Jot down: abc")
	assert.True(t, got.Storable())
	assert.Equal(t, "abc", got.Text)
}

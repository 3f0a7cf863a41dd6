package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeanpaul/foundernote/internal/schema"
)

// Schema is the JSON shape the model is asked to return. Categories may be
// missing or null; they are filled in as empty.
const Schema = `{
  "type": "object",
  "properties": {
    "openThoughts": {"$ref": "#/definitions/items"},
    "ideas":        {"$ref": "#/definitions/items"},
    "questions":    {"$ref": "#/definitions/items"},
    "decisions":    {"$ref": "#/definitions/items"},
    "blockers":     {"$ref": "#/definitions/items"},
    "themes": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "text": {"type": "string"},
          "noteCount": {"type": ["integer", "null"]}
        }
      }
    }
  },
  "definitions": {
    "items": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["text"],
        "properties": {
          "text":      {"type": "string"},
          "noteId":    {"type": ["string", "null"]},
          "noteTitle": {"type": ["string", "null"]}
        }
      }
    }
  }
}`

var validator = schema.NewValidator()

type wireItem struct {
	Text      string  `json:"text"`
	NoteID    *string `json:"noteId"`
	NoteTitle *string `json:"noteTitle"`
}

type wireTheme struct {
	Text      string `json:"text"`
	NoteCount *int   `json:"noteCount"`
}

type wireResult struct {
	OpenThoughts []wireItem  `json:"openThoughts"`
	Ideas        []wireItem  `json:"ideas"`
	Questions    []wireItem  `json:"questions"`
	Decisions    []wireItem  `json:"decisions"`
	Blockers     []wireItem  `json:"blockers"`
	Themes       []wireTheme `json:"themes"`
}

// Parse turns model output into a digest. Output that is not valid JSON or
// does not match Schema yields Empty() together with the reason; callers log
// the error and carry on with the empty digest.
func Parse(raw string) (Result, error) {
	doc := []byte(stripFence(raw))
	if err := validator.Validate(Schema, doc); err != nil {
		return Empty(), fmt.Errorf("synthesis: %w", err)
	}

	var w wireResult
	if err := json.Unmarshal(doc, &w); err != nil {
		return Empty(), fmt.Errorf("synthesis: decode: %w", err)
	}

	r := Result{
		OpenThoughts: convertItems(w.OpenThoughts),
		Ideas:        convertItems(w.Ideas),
		Questions:    convertItems(w.Questions),
		Decisions:    convertItems(w.Decisions),
		Blockers:     convertItems(w.Blockers),
		Themes:       []Theme{},
	}
	for _, t := range w.Themes {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			continue
		}
		th := Theme{Text: text}
		if t.NoteCount != nil {
			th.NoteCount = *t.NoteCount
		}
		r.Themes = append(r.Themes, th)
		if len(r.Themes) == MaxPerCategory {
			break
		}
	}
	return r, nil
}

func convertItems(in []wireItem) []Item {
	out := []Item{}
	for _, it := range in {
		text := strings.TrimSpace(it.Text)
		if text == "" {
			continue
		}
		item := Item{Text: text}
		if it.NoteID != nil {
			item.NoteID = *it.NoteID
		}
		if it.NoteTitle != nil {
			item.NoteTitle = *it.NoteTitle
		}
		out = append(out, item)
		if len(out) == MaxPerCategory {
			break
		}
	}
	return out
}

// stripFence removes a ```json fence some models wrap around JSON.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ResolveNoteIDs points items at real notes by title. The model only sees
// titles reliably; ids it invents are replaced when the title is known.
func (r *Result) ResolveNoteIDs(idByTitle map[string]string) {
	for _, items := range [][]Item{r.OpenThoughts, r.Ideas, r.Questions, r.Decisions, r.Blockers} {
		for i := range items {
			if id, ok := idByTitle[items[i].NoteTitle]; ok && items[i].NoteTitle != "" {
				items[i].NoteID = id
			}
		}
	}
}

package brain

import (
	"fmt"
	"strings"

	"github.com/jeanpaul/foundernote/internal/notes"
)

const systemPrompt = "You extract mental fragments from notes. Return only valid JSON, no markdown."

const instructions = `You are analyzing a user's voice notes to extract their current mental state: what's on their mind, what they're thinking about, what remains unresolved. The notes cover %s.

Extract mental fragments into these categories:

1. **Open Thoughts**: incomplete ideas, things being mulled over, work in progress thinking
2. **Decisions**: choices that were mentioned, made, or are pending
3. **Questions**: unresolved questions, things they're wondering about
4. **Blockers**: concerns, obstacles, things holding them back
5. **Ideas**: creative concepts, possibilities, things worth exploring
6. **Themes**: recurring topics or patterns across multiple notes

For each item:
- Keep it SHORT (1 sentence max, ideally a fragment)
- Use the user's own words when possible
- Give the exact title and id of the source note
- Focus on what's mentally present, not tasks to do

Return JSON in this exact format:
{
  "openThoughts": [{"text": "...", "noteTitle": "...", "noteId": "..."}],
  "decisions": [{"text": "...", "noteTitle": "...", "noteId": "..."}],
  "questions": [{"text": "...", "noteTitle": "...", "noteId": "..."}],
  "blockers": [{"text": "...", "noteTitle": "...", "noteId": "..."}],
  "ideas": [{"text": "...", "noteTitle": "...", "noteId": "..."}],
  "themes": [{"text": "...", "noteCount": 2}]
}

Keep each category to %d items max. If a category has nothing, return an empty array.

NOTES TO ANALYZE:
%s`

// buildPrompt renders the user turn of a digest request.
func buildPrompt(scopeLabel string, list []notes.Note, maxChars, perCategory int) string {
	blocks := make([]string, 0, len(list))
	for _, n := range list {
		points := "None"
		if len(n.KeyPoints) > 0 {
			points = strings.Join(n.KeyPoints, "; ")
		}
		summary := n.Summary
		if summary == "" {
			summary = "No summary"
		}
		blocks = append(blocks, fmt.Sprintf("[Note: %q (id: %s) - %s]\nSummary: %s\nKey Points: %s\nContent: %s",
			n.Title, n.ID, n.CreatedAt.Format("2006-01-02"), summary, points, truncate(n.Body(), maxChars)))
	}
	return fmt.Sprintf(instructions, scopeLabel, perCategory, strings.Join(blocks, "\n\n---\n\n"))
}

func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

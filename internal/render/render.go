// Package render turns digests, action lists and intents into terminal output.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeanpaul/foundernote/internal/actions"
	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/synthesis"
)

// DefaultWidth is the wrap width for markdown output.
const DefaultWidth = 80

// DigestMarkdown writes a digest as markdown. Empty categories are left out;
// an entirely empty digest says so.
func DigestMarkdown(scopeLabel string, r synthesis.Result, cached bool, cachedAt time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# What's on your mind\n\n_%s_", scopeLabel)
	if cached && !cachedAt.IsZero() {
		fmt.Fprintf(&b, " _(cached %s)_", cachedAt.Local().Format("Jan 2 15:04"))
	}
	b.WriteString("\n\n")

	if r.IsEmpty() {
		b.WriteString("Nothing pressing. Your notes in this scope look settled.\n")
		return b.String()
	}

	sections := []struct {
		title string
		items []synthesis.Item
	}{
		{"Open threads", r.OpenThoughts},
		{"Ideas", r.Ideas},
		{"Questions", r.Questions},
		{"Decisions", r.Decisions},
		{"Blockers", r.Blockers},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", s.title)
		for _, it := range s.items {
			b.WriteString("- " + it.Text)
			if it.NoteTitle != "" {
				fmt.Fprintf(&b, " _(%s)_", it.NoteTitle)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if len(r.Themes) > 0 {
		b.WriteString("## Recurring themes\n\n")
		for _, th := range r.Themes {
			b.WriteString("- " + th.Text)
			if th.NoteCount > 0 {
				fmt.Fprintf(&b, " (%d notes)", th.NoteCount)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Markdown renders markdown for the terminal. With plain set, or when the
// renderer cannot be built, the source is returned unchanged.
func Markdown(md string, width int, plain bool) string {
	if plain {
		return md
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// Actions lists merged todos and intents, each followed by the citation
// number of its source note, then the numbered sources.
func Actions(l actions.List) string {
	var b strings.Builder
	b.WriteString(HeadingStyle.Render("Actions") + "\n")
	if len(l.Items) == 0 {
		b.WriteString(HelpStyle.Render("  Nothing to do. Capture something with \"Remy, remember ...\"") + "\n")
		return b.String()
	}
	for i, it := range l.Items {
		kind := string(it.Type)
		if it.Type == actions.TypeIntent {
			kind = string(it.IntentType)
		}
		line := fmt.Sprintf("  %s %s %s", BulletStyle.Render(fmt.Sprintf("%2d.", i+1)), badge(kind), TextStyle.Render(it.Text))
		if c, ok := l.CitationFor(it); ok {
			line += " " + CitationStyle.Render(fmt.Sprintf("[%d]", c.Index))
		}
		b.WriteString(line + "\n")
	}

	cites := l.OrderedCitations()
	if len(cites) > 0 {
		b.WriteString("\n" + LabelStyle.Render("Sources") + "\n")
		for _, c := range cites {
			fmt.Fprintf(&b, "  %s %s %s\n",
				CitationStyle.Render(fmt.Sprintf("[%d]", c.Index)),
				TextStyle.Render(orUntitled(c.Title)),
				HelpStyle.Render(c.CreatedAt.Local().Format("Jan 2")),
			)
		}
	}
	return b.String()
}

// Intents shows the active and completed collections side by side in order.
func Intents(active, completed []intent.Intent) string {
	var b strings.Builder
	b.WriteString(HeadingStyle.Render(fmt.Sprintf("Remembered (%d)", len(active))) + "\n")
	if len(active) == 0 {
		b.WriteString(HelpStyle.Render("  Nothing yet.") + "\n")
	}
	for _, in := range active {
		b.WriteString(intentLine(in, false))
	}
	if len(completed) > 0 {
		b.WriteString("\n" + LabelStyle.Render(fmt.Sprintf("Done (%d)", len(completed))) + "\n")
		for _, in := range completed {
			b.WriteString(intentLine(in, true))
		}
	}
	return b.String()
}

func intentLine(in intent.Intent, done bool) string {
	text := TextStyle.Render(in.Text())
	if done {
		text = DoneStyle.Render(in.Text())
	}
	line := fmt.Sprintf("  %s %s %s", badge(string(in.IntentType)), text, HelpStyle.Render(shortID(in.ID)))
	if in.SourceTitle != "" {
		line += " " + HelpStyle.Render("from "+in.SourceTitle)
	}
	return line + "\n"
}

// Captured confirms the intents a chat message stored.
func Captured(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(LabelStyle.Render("Saved") + "\n")
	for _, it := range items {
		b.WriteString("  " + BulletStyle.Render("+") + " " + TextStyle.Render(it) + "\n")
	}
	return b.String()
}

// Check is one line of a doctor report.
func Check(label string, ok bool, detail string) string {
	mark := BannerStyle.Render("✓ OK")
	if !ok {
		mark = ErrorStyle.Render("✗")
	}
	return fmt.Sprintf("  %s %s ... %s %s\n", BulletStyle.Render("●"), LabelStyle.Render(label), mark, HelpStyle.Render(detail))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orUntitled(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Untitled note"
	}
	return s
}

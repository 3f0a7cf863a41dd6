package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/scope"
)

const persona = `You are Remy, a thoughtful AI assistant embedded in Founder Note. You help founders capture, organize, and reflect on their thoughts.

PERSONALITY:
- Calm, precise, and intentional in your responses
- Warm but without unnecessary filler
- A reliable memory companion, not just a Q&A bot
- When users explicitly ask you to remember something, acknowledge it clearly but minimally

FORMATTING RULES:
- NEVER use markdown formatting (no bold, no italic, no bullet or numbered lists).
- Write in plain, flowing prose. Use short paragraphs separated by line breaks.
- If listing items, use natural language ("First, ... Second, ...") or simple line breaks.

INTENT CAPTURE:
When users explicitly address you with phrases like "Hey Remy", "Remy, remember this", "Remy, don't forget" or similar, they want you to remember something. Saving is handled for you; a system note tells you what was saved. Acknowledge it, confirm what you understood, and stay brief.

You NEVER decide on your own to store anything. Only explicit requests are saved.`

const dateLong = "Monday, January 2, 2006"
const dateShort = "Jan 2, 2006"

func orNone(s, none string) string {
	if strings.TrimSpace(s) == "" {
		return none
	}
	return s
}

func joinOr(list []string, none string) string {
	if len(list) == 0 {
		return none
	}
	return strings.Join(list, ", ")
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// describe labels the scope with what the assistant actually sees.
func describe(sc scope.Descriptor, list []notes.Note) string {
	switch sc.Kind {
	case scope.KindNote:
		if len(list) > 0 {
			return fmt.Sprintf("the note titled %q", list[0].Title)
		}
		return sc.Describe()
	case scope.KindFolder, scope.KindTag:
		return fmt.Sprintf("%s (%s)", sc.Describe(), plural(len(list), "note"))
	}
	return fmt.Sprintf("all notes (%d total)", len(list))
}

func systemPrompt(sc scope.Descriptor, list []notes.Note, label string, maxChars int) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString("\n\n")
	switch sc.Kind {
	case scope.KindNote:
		writeNoteContext(&b, list[0])
	case scope.KindFolder:
		writeFolderContext(&b, sc.Folder, list, maxChars)
	case scope.KindTag:
		writeTagContext(&b, sc.Tag, list, maxChars)
	default:
		writeGlobalContext(&b, list, maxChars)
	}
	fmt.Fprintf(&b, "\n\nYou are scoped to: %s", label)
	return b.String()
}

func writeNoteContext(b *strings.Builder, n notes.Note) {
	points := "No key points"
	if len(n.KeyPoints) > 0 {
		lines := make([]string, len(n.KeyPoints))
		for i, p := range n.KeyPoints {
			lines[i] = fmt.Sprintf("%d. %s", i+1, p)
		}
		points = strings.Join(lines, "\n")
	}

	fmt.Fprintf(b, `CURRENT CONTEXT: You are viewing a SINGLE NOTE. Your knowledge is strictly limited to this note.

=== CURRENT NOTE ===
Title: %s
Created: %s
Folder: %s
Tags: %s

Summary:
%s

Key Points:
%s

Smartified Transcript:
%s

Raw Transcript:
%s
=== END NOTE ===

RULES:
1. Answer ONLY using information from this note.
2. Never reference other notes; you cannot see them in this view.
3. If asked about something not in this note, say: "That information isn't in this note. I can only see the content of '%s' right now."
4. If the user wants to search across all notes, suggest returning to the dashboard.
5. Be direct and precise. Reference specific parts of the note when answering.`,
		n.Title, n.CreatedAt.Format(dateLong), orNone(n.Folder, "None"), joinOr(n.Tags, "None"),
		orNone(n.Summary, "No summary available"), points,
		orNone(n.SmartifiedText, "No smartified version"), orNone(n.Transcription, "No transcript"),
		n.Title)
}

func writeNoteList(b *strings.Builder, list []notes.Note, maxChars int, folder bool) {
	for i, n := range list {
		fmt.Fprintf(b, "\n--- Note %d: %q ---\nCreated: %s\n", i+1, n.Title, n.CreatedAt.Format(dateShort))
		if folder {
			fmt.Fprintf(b, "Folder: %s\n", orNone(n.Folder, "None"))
		}
		fmt.Fprintf(b, "Tags: %s\nSummary: %s\nContent: %s\n---\n",
			joinOr(n.Tags, "None"), orNone(n.Summary, "No summary"), truncate(n.Body(), maxChars))
	}
}

func writeFolderContext(b *strings.Builder, folder string, list []notes.Note, maxChars int) {
	fmt.Fprintf(b, "CURRENT CONTEXT: You are viewing the FOLDER %q. Your knowledge is strictly limited to notes in this folder.\n\n", folder)
	fmt.Fprintf(b, "=== FOLDER: %s ===\nTotal Notes: %d\n", folder, len(list))
	if len(list) == 0 {
		b.WriteString("This folder is empty.\n")
	}
	writeNoteList(b, list, maxChars, false)
	fmt.Fprintf(b, `=== END FOLDER ===

RULES:
1. Answer ONLY using notes in this folder. You cannot see other folders.
2. When referencing content, always name the note it comes from by title.
3. If asked about something not here, say: "I don't see that in the '%s' folder. I can only access notes within this folder right now."
4. You can compare notes in this folder, find patterns and summarize it.
5. If the folder is empty, say so and suggest recording notes into it.`, folder)
}

func writeTagContext(b *strings.Builder, tag string, list []notes.Note, maxChars int) {
	fmt.Fprintf(b, "CURRENT CONTEXT: You are viewing notes tagged %q. Your knowledge is strictly limited to notes with this tag.\n\n", tag)
	fmt.Fprintf(b, "=== TAG: #%s ===\nTotal Notes: %d\n", tag, len(list))
	if len(list) == 0 {
		b.WriteString("No notes have this tag.\n")
	}
	writeNoteList(b, list, maxChars, true)
	fmt.Fprintf(b, `=== END TAG ===

RULES:
1. Answer ONLY using notes tagged %q.
2. When referencing content, always name the note it comes from by title.
3. If asked about something not here, say: "I don't see that in notes tagged '%s'. I can only access notes with this tag right now."
4. You can compare these notes, find patterns and summarize themes.
5. If no notes have this tag, say so and suggest tagging relevant notes.`, tag, tag)
}

func writeGlobalContext(b *strings.Builder, list []notes.Note, maxChars int) {
	groups := map[string][]notes.Note{}
	var folders []string
	var loose []notes.Note
	tagSeen := map[string]bool{}
	var tags []string
	for _, n := range list {
		if n.Folder == "" {
			loose = append(loose, n)
		} else {
			if _, ok := groups[n.Folder]; !ok {
				folders = append(folders, n.Folder)
			}
			groups[n.Folder] = append(groups[n.Folder], n)
		}
		for _, t := range n.Tags {
			if !tagSeen[t] {
				tagSeen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(folders)

	b.WriteString("CURRENT CONTEXT: You are on the DASHBOARD with access to all notes.\n\n=== ALL NOTES OVERVIEW ===\n")
	fmt.Fprintf(b, "Total Notes: %d\nFolders: %s\nAll Tags: %s\n", len(list), joinOr(folders, "None"), joinOr(tags, "None"))

	overview := func(header string, group []notes.Note) {
		b.WriteString(header)
		for i, n := range group {
			if i == 5 {
				break
			}
			preview := n.Summary
			if preview == "" {
				preview = orNone(truncate(n.Transcription, 100), "No content")
			}
			fmt.Fprintf(b, "%d. %q - %s\n", i+1, n.Title, preview)
		}
	}
	for _, f := range folders {
		overview(fmt.Sprintf("\n--- FOLDER: %s (%s) ---\n", f, plural(len(groups[f]), "note")), groups[f])
	}
	if len(loose) > 0 {
		overview(fmt.Sprintf("\n--- UNFILED NOTES (%d) ---\n", len(loose)), loose)
	}

	b.WriteString("\n\n=== DETAILED RECENT NOTES ===\n")
	recent := list
	if len(recent) > 10 {
		recent = recent[:10]
	}
	writeNoteList(b, recent, maxChars, true)

	b.WriteString(`
CAPABILITIES:
1. Search and reference any note the user has created
2. Compare notes across folders and tags
3. Find patterns, themes and connections
4. Summarize recent activity, a folder or a tag
5. Ask which note the user means when several match

When referencing content, always cite the note title. If something is not in any note, say it wasn't found.`)
}

func captureNote(payload string) string {
	return fmt.Sprintf("[SYSTEM: The user explicitly asked you to remember: %q. It is being saved as an intent. Acknowledge this briefly and warmly, confirming what you'll remember. Keep it to 1-2 sentences.]", payload)
}

const clarifyNote = "[SYSTEM: The user addressed you with a remember command but did not say what to remember. Nothing was saved. Briefly ask what they would like you to save.]"

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

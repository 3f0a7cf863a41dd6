// Package trigger recognizes chat messages that explicitly ask the assistant
// to remember something, and extracts what should be remembered.
//
// Detection looks at one message only. Extraction is mechanical: the
// invocation phrase is cut off and the rest is kept in the user's words.
package trigger

import (
	"strings"
	"unicode/utf8"
)

// DefaultMinPayload is the shortest payload worth storing, in characters.
const DefaultMinPayload = 5

// Result is the outcome of detecting one message.
type Result struct {
	Triggered bool
	// Text is the payload with the invocation phrase removed.
	Text string
	// Rule names the table entry that matched, "" when not triggered.
	Rule string

	minPayload int
}

// Suppressed reports a detected trigger whose payload is too short to store.
// Callers must not persist an intent for it.
func (r Result) Suppressed() bool {
	return r.Triggered && utf8.RuneCountInString(r.Text) < r.minPayload
}

// Storable reports whether the result should become an intent.
func (r Result) Storable() bool {
	return r.Triggered && !r.Suppressed()
}

type Detector struct {
	table Table
}

func New(t Table) *Detector {
	if t.MinPayload <= 0 {
		t.MinPayload = DefaultMinPayload
	}
	return &Detector{table: t}
}

// Default returns a detector over the built-in table.
func Default() *Detector {
	return New(DefaultTable())
}

// Detect checks a single message. Rules are tried in table order and the
// first match wins; an address rule gets one more pass over the followups.
func (d *Detector) Detect(message string) Result {
	text := strings.TrimSpace(message)
	for _, rule := range d.table.Rules {
		rest, ok := rule.apply(text)
		if !ok {
			continue
		}
		name := rule.Name
		if rule.Address {
			rest = strings.TrimSpace(rest)
			for _, f := range d.table.Followups {
				if r, ok := f.apply(rest); ok {
					rest = r
					name = rule.Name + "+" + f.Name
					break
				}
			}
		}
		return Result{
			Triggered:  true,
			Text:       strings.TrimSpace(rest),
			Rule:       name,
			minPayload: d.table.MinPayload,
		}
	}
	return Result{minPayload: d.table.MinPayload}
}

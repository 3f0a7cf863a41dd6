// Package scope resolves a scope descriptor (all notes, a folder, a tag or a
// single note) into a stable cache key and the note selection handed to the
// synthesizer.
package scope

import (
	"errors"
	"fmt"

	"github.com/jeanpaul/foundernote/internal/notes"
)

type Kind string

const (
	KindGlobal Kind = "global"
	KindFolder Kind = "folder"
	KindTag    Kind = "tag"
	KindNote   Kind = "note"
)

// GlobalLimit caps how many of the most recent notes a global synthesis reads.
const GlobalLimit = 30

var (
	ErrUnknownKind = errors.New("scope: unknown kind")
	ErrIncomplete  = errors.New("scope: missing value")
)

// Descriptor identifies a subset of a user's notes. Its JSON form is the
// contextScope object exchanged with the server.
type Descriptor struct {
	Kind      Kind   `json:"type"`
	Folder    string `json:"folder,omitempty"`
	Tag       string `json:"tag,omitempty"`
	NoteID    string `json:"noteId,omitempty"`
	NoteTitle string `json:"noteTitle,omitempty"`
}

func Global() Descriptor { return Descriptor{Kind: KindGlobal} }

func Folder(name string) Descriptor { return Descriptor{Kind: KindFolder, Folder: name} }

func Tag(name string) Descriptor { return Descriptor{Kind: KindTag, Tag: name} }

func Note(id, title string) Descriptor {
	return Descriptor{Kind: KindNote, NoteID: id, NoteTitle: title}
}

// Validate checks that the kind is known and that the field it needs is set.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindGlobal:
		return nil
	case KindFolder:
		if d.Folder == "" {
			return fmt.Errorf("%w: folder name", ErrIncomplete)
		}
	case KindTag:
		if d.Tag == "" {
			return fmt.Errorf("%w: tag name", ErrIncomplete)
		}
	case KindNote:
		if d.NoteID == "" {
			return fmt.Errorf("%w: note id", ErrIncomplete)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownKind, d.Kind)
	}
	return nil
}

// Key serializes the descriptor into its cache key. Only the fields that
// define the scope take part: the note title is display metadata, so a
// renamed note keeps its key. Keys are injective: the kind prefix is fixed
// and the value follows it verbatim.
func (d Descriptor) Key() (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	switch d.Kind {
	case KindFolder:
		return "folder:" + d.Folder, nil
	case KindTag:
		return "tag:" + d.Tag, nil
	case KindNote:
		return "note:" + d.NoteID, nil
	default:
		return string(KindGlobal), nil
	}
}

// MustKey is Key for descriptors built by the program itself.
func (d Descriptor) MustKey() string {
	k, err := d.Key()
	if err != nil {
		panic(err)
	}
	return k
}

// Value returns the scope's single parameter ("" for global).
func (d Descriptor) Value() string {
	switch d.Kind {
	case KindFolder:
		return d.Folder
	case KindTag:
		return d.Tag
	case KindNote:
		return d.NoteID
	}
	return ""
}

// Describe returns a human label used in prompts and responses.
func (d Descriptor) Describe() string {
	switch d.Kind {
	case KindFolder:
		return fmt.Sprintf("the %q folder", d.Folder)
	case KindTag:
		return fmt.Sprintf("notes tagged %q", d.Tag)
	case KindNote:
		if d.NoteTitle != "" {
			return fmt.Sprintf("the note titled %q", d.NoteTitle)
		}
		return "a single note"
	}
	return "all your notes"
}

// Selector is the note predicate a scope resolves to.
type Selector struct {
	Kind   Kind
	Folder string
	Tag    string
	NoteID string
	// Limit bounds the number of most recent notes read; zero means no limit.
	Limit int
}

// Selector resolves the descriptor into the notes it covers.
func (d Descriptor) Selector() (Selector, error) {
	if err := d.Validate(); err != nil {
		return Selector{}, err
	}
	sel := Selector{Kind: d.Kind}
	switch d.Kind {
	case KindFolder:
		sel.Folder = d.Folder
	case KindTag:
		sel.Tag = d.Tag
	case KindNote:
		sel.NoteID = d.NoteID
		sel.Limit = 1
	case KindGlobal:
		sel.Limit = GlobalLimit
	}
	return sel, nil
}

// Match reports whether n belongs to the selection. Limit is not applied.
func (s Selector) Match(n notes.Note) bool {
	switch s.Kind {
	case KindFolder:
		return n.Folder == s.Folder
	case KindTag:
		return n.HasTag(s.Tag)
	case KindNote:
		return n.ID == s.NoteID
	case KindGlobal:
		return true
	}
	return false
}

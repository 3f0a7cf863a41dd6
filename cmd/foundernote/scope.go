package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/scope"
)

type scopeFlags struct {
	folder string
	tag    string
	note   string
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.folder, "folder", "", "limit to a folder")
	cmd.Flags().StringVar(&f.tag, "tag", "", "limit to a tag")
	cmd.Flags().StringVar(&f.note, "note", "", "limit to a single note id")
	cmd.MarkFlagsMutuallyExclusive("folder", "tag", "note")
}

func (f *scopeFlags) descriptor() scope.Descriptor {
	switch {
	case f.folder != "":
		return scope.Folder(f.folder)
	case f.tag != "":
		return scope.Tag(strings.TrimPrefix(f.tag, "#"))
	case f.note != "":
		return scope.Note(f.note, "")
	}
	return scope.Global()
}

// parseScope reads "global", "folder:NAME", "tag:NAME" or "note:ID".
func parseScope(s string) (scope.Descriptor, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "global" {
		return scope.Global(), nil
	}
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return scope.Descriptor{}, fmt.Errorf("scope %q: want global, folder:NAME, tag:NAME or note:ID", s)
	}
	var d scope.Descriptor
	switch kind {
	case "folder":
		d = scope.Folder(value)
	case "tag":
		d = scope.Tag(strings.TrimPrefix(value, "#"))
	case "note":
		d = scope.Note(value, "")
	default:
		return scope.Descriptor{}, fmt.Errorf("scope %q: unknown kind %q", s, kind)
	}
	return d, d.Validate()
}

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/render"
)

func newIntentsCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:     "intents",
		Aliases: []string{"remembered"},
		Short:   "List what you asked the assistant to remember",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if status != "" {
				list, err := c.ListIntents(cmd.Context(), intent.Status(status), limit)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), render.Intents(list, nil))
				return nil
			}
			b, err := loadBoard(cmd.Context(), c, limit, nil)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Intents(b.Active(), b.Completed()))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only this status (active, completed, archived, all)")
	cmd.Flags().IntVar(&limit, "limit", intent.DefaultListLimit, "maximum intents per list")

	cmd.AddCommand(
		newToggleCmd("done", "Mark an intent completed", intent.StatusCompleted),
		newToggleCmd("archive", "Archive an intent", intent.StatusArchived),
		newToggleCmd("undo", "Move a completed or archived intent back to active", intent.StatusActive),
	)
	return cmd
}

func newToggleCmd(use, short string, status intent.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			notify := func(msg string) {
				fmt.Fprintln(cmd.ErrOrStderr(), render.ErrorStyle.Render(msg))
			}
			b, err := loadBoard(cmd.Context(), c, intent.DefaultListLimit, notify)
			if err != nil {
				return err
			}
			id, err := resolveID(b, args[0])
			if err != nil {
				return err
			}
			if err := b.Toggle(cmd.Context(), id, status); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Intents(b.Active(), b.Completed()))
			return nil
		},
	}
}

// intentLister is the part of the client the intents commands use.
type intentLister interface {
	intent.Updater
	ListIntents(ctx context.Context, status intent.Status, limit int) ([]intent.Intent, error)
}

// loadBoard fetches the active, completed and archived lists in parallel.
// Each list gets its own limit, so a long active list never crowds finished
// intents out of the board.
func loadBoard(ctx context.Context, c intentLister, limit int, notify func(string)) (*intent.Board, error) {
	var active, completed, archived []intent.Intent
	g, gctx := errgroup.WithContext(ctx)
	list := func(status intent.Status, dst *[]intent.Intent) {
		g.Go(func() error {
			var err error
			*dst, err = c.ListIntents(gctx, status, limit)
			return err
		})
	}
	list(intent.StatusActive, &active)
	list(intent.StatusCompleted, &completed)
	list(intent.StatusArchived, &archived)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	done := append(completed, archived...)
	sort.SliceStable(done, func(i, j int) bool {
		return finishedAt(done[i]).After(finishedAt(done[j]))
	})
	var opts []intent.BoardOption
	if notify != nil {
		opts = append(opts, intent.WithNotifier(notify))
	}
	b := intent.NewBoard(c, opts...)
	b.Replace(active, done)
	return b, nil
}

func finishedAt(in intent.Intent) time.Time {
	if in.CompletedAt != nil {
		return *in.CompletedAt
	}
	return in.CreatedAt
}

// resolveID accepts a full id or a unique prefix, as shown by the list.
func resolveID(b *intent.Board, prefix string) (string, error) {
	var matches []string
	for _, in := range append(b.Active(), b.Completed()...) {
		if in.ID == prefix {
			return in.ID, nil
		}
		if strings.HasPrefix(in.ID, prefix) {
			matches = append(matches, in.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", intent.ErrNotFound, prefix)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("id prefix %q is ambiguous (%d matches)", prefix, len(matches))
}

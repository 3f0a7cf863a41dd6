package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeanpaul/foundernote/internal/actions"
	"github.com/jeanpaul/foundernote/internal/intent"
	"github.com/jeanpaul/foundernote/internal/notes"
	"github.com/jeanpaul/foundernote/internal/render"
	"github.com/jeanpaul/foundernote/internal/scope"
)

func newActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "Show pending todos and active intents as one list",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			var (
				todos   []notes.Todo
				intents []intent.Intent
				noteSet []notes.Note
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() (err error) {
				todos, err = c.ListTodos(ctx)
				return err
			})
			g.Go(func() (err error) {
				intents, err = c.ListIntents(ctx, intent.StatusActive, intent.DefaultListLimit)
				return err
			})
			g.Go(func() (err error) {
				noteSet, err = c.ListNotes(ctx, scope.Global(), 0)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.Actions(actions.Build(todos, intents, noteSet)))
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/render"
)

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-data",
		Short: "Delete all your intents and cached digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this deletes every intent and cached digest for %q; rerun with --yes", cfg.Client.UserID)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.ClearData(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.BannerStyle.Render("✓ data cleared"))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deletion")
	return cmd
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/chat"
	"github.com/jeanpaul/foundernote/internal/client"
	"github.com/jeanpaul/foundernote/internal/render"
	"github.com/jeanpaul/foundernote/internal/scope"
)

func newChatCmd() *cobra.Command {
	var sf scopeFlags
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to Remy about your notes",
		Long: `Talk to Remy about a scope of notes. With a message argument, send one
turn and exit; otherwise read messages from stdin until EOF or "exit".

Say "Remy, remember ..." to save something to your intents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			sc := sf.descriptor()
			if len(args) > 0 {
				_, err := chatTurn(cmd.Context(), c, sc, nil, strings.Join(args, " "), cmd.OutOrStdout())
				return err
			}
			return chatSession(cmd.Context(), c, sc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	sf.register(cmd)
	return cmd
}

func chatSession(ctx context.Context, c *client.Client, sc scope.Descriptor, in io.Reader, out io.Writer) error {
	var history []chat.Message
	s := bufio.NewScanner(in)
	fmt.Fprint(out, render.LabelStyle.Render("you> "))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line != "" {
			h, err := chatTurn(ctx, c, sc, history, line, out)
			if err != nil {
				fmt.Fprintln(out, render.ErrorStyle.Render(err.Error()))
			} else {
				history = h
			}
		}
		fmt.Fprint(out, render.LabelStyle.Render("you> "))
	}
	return s.Err()
}

// chatTurn sends one message and prints the reply. It returns the history
// including the new exchange.
func chatTurn(ctx context.Context, c *client.Client, sc scope.Descriptor, history []chat.Message, msg string, out io.Writer) ([]chat.Message, error) {
	msgs := append(append([]chat.Message{}, history...), chat.Message{Role: "user", Content: msg})
	rep, err := c.Chat(ctx, msgs, sc)
	if err != nil {
		return history, err
	}

	fmt.Fprintln(out, render.HeadingStyle.Render("remy")+" "+render.HelpStyle.Render(rep.Scope.Description))
	fmt.Fprint(out, render.Markdown(rep.Message, render.DefaultWidth, flags.plain || !isTerminal()))

	if len(rep.IntentCaptured) > 0 {
		saved := make([]string, len(rep.IntentCaptured))
		for i, it := range rep.IntentCaptured {
			saved[i] = fmt.Sprintf("%s (%s)", it.Content, it.Type)
		}
		fmt.Fprint(out, render.Captured(saved))
	}
	if len(rep.Sources) > 0 {
		titles := make([]string, len(rep.Sources))
		for i, src := range rep.Sources {
			titles[i] = src.Title
		}
		fmt.Fprintln(out, render.HelpStyle.Render("sources: "+strings.Join(titles, ", ")))
	}
	return append(msgs, chat.Message{Role: "assistant", Content: rep.Message}), nil
}

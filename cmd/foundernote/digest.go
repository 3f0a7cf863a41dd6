package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/cache"
	"github.com/jeanpaul/foundernote/internal/fetcher"
	"github.com/jeanpaul/foundernote/internal/render"
	"github.com/jeanpaul/foundernote/internal/scope"
)

func newDigestCmd() *cobra.Command {
	var (
		sf          scopeFlags
		refresh     bool
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Show what's on your mind for a scope",
		Long: `Show the digest of open threads, ideas, questions, decisions, blockers and
themes across a scope of notes.

With --interactive, read scopes from stdin one per line (global,
folder:NAME, tag:NAME, note:ID). Digests already shown in the session are
reused; "refresh" reloads the last scope and "stale" marks every cached
digest as outdated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			session := cache.New()
			f := fetcher.New(session, c)
			defer f.Close()

			if interactive {
				return digestSession(cmd.Context(), f, session, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			v, err := f.Load(cmd.Context(), sf.descriptor(), fetcher.LoadOptions{ForceRefresh: refresh})
			if err != nil {
				return err
			}
			printDigest(cmd.OutOrStdout(), v)
			return nil
		},
	}
	sf.register(cmd)
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore cached digests")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse scopes in one session")
	return cmd
}

func digestSession(ctx context.Context, f *fetcher.Fetcher, c *cache.Cache, in io.Reader, out io.Writer) error {
	last := scope.Global()
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, render.HelpStyle.Render("scope> "))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		opts := fetcher.LoadOptions{}
		switch line {
		case "":
			fmt.Fprint(out, render.HelpStyle.Render("scope> "))
			continue
		case "quit", "exit":
			return nil
		case "stale":
			c.MarkStale()
			fmt.Fprintln(out, render.HelpStyle.Render("cached digests marked stale"))
			fmt.Fprint(out, render.HelpStyle.Render("scope> "))
			continue
		case "refresh":
			opts.ForceRefresh = true
		default:
			d, err := parseScope(line)
			if err != nil {
				fmt.Fprintln(out, render.ErrorStyle.Render(err.Error()))
				fmt.Fprint(out, render.HelpStyle.Render("scope> "))
				continue
			}
			last = d
		}

		v, err := f.Load(ctx, last, opts)
		switch {
		case errors.Is(err, fetcher.ErrSuperseded):
		case err != nil:
			fmt.Fprintln(out, render.ErrorStyle.Render(err.Error()))
			if v.Synthesis != nil {
				fmt.Fprintln(out, render.HelpStyle.Render("showing the previous digest"))
				printDigest(out, v)
			}
		default:
			printDigest(out, v)
		}
		fmt.Fprint(out, render.HelpStyle.Render("scope> "))
	}
	return sc.Err()
}

func printDigest(w io.Writer, v fetcher.View) {
	if v.Synthesis == nil {
		return
	}
	md := render.DigestMarkdown(v.Scope.Describe(), *v.Synthesis, v.Cached, v.CachedAt)
	fmt.Fprint(w, render.Markdown(md, render.DefaultWidth, flags.plain || !isTerminal()))
	if v.FromCache {
		fmt.Fprintln(w, render.HelpStyle.Render("(from this session)"))
	}
}

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

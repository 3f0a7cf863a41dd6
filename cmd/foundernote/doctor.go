package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/client"
	"github.com/jeanpaul/foundernote/internal/health"
	"github.com/jeanpaul/foundernote/internal/provider"
	"github.com/jeanpaul/foundernote/internal/render"
	"github.com/jeanpaul/foundernote/internal/store"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the model provider, database and server",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			ctx := cmd.Context()
			fmt.Fprintln(w, render.BannerStyle.Render("  foundernote health check"))
			fmt.Fprintln(w)

			p := provider.NewOpenAI(cfg.Provider.Name, cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Model, cfg.Timeouts.Provider)
			st := health.Check(ctx, p, health.DefaultTimeout)
			providerOK := st.Reachable
			if providerOK {
				detail := st.Latency.Round(time.Millisecond).String()
				if len(st.Models) > 0 {
					detail = fmt.Sprintf("%d models, %s", len(st.Models), detail)
				}
				fmt.Fprint(w, render.Check(cfg.Provider.Name, true, detail))
				if err := health.CheckModel(st, cfg.Provider.Model); err != nil {
					providerOK = false
					fmt.Fprint(w, render.Check("model "+cfg.Provider.Model, false, err.Error()))
				} else {
					fmt.Fprint(w, render.Check("model "+cfg.Provider.Model, true, ""))
				}
			} else {
				fmt.Fprint(w, render.Check(cfg.Provider.Name, false, st.Error))
			}

			if db, err := store.Open(cfg.Server.DBPath); err != nil {
				fmt.Fprint(w, render.Check("database", false, err.Error()))
			} else {
				db.Close()
				fmt.Fprint(w, render.Check("database", true, cfg.Server.DBPath))
			}

			c := client.New(client.Config{BaseURL: cfg.Client.ServerURL, IntentsTimeout: 3 * time.Second})
			if err := c.Ping(ctx); err != nil {
				fmt.Fprint(w, render.Check("server", false, err.Error()+" (optional for serve)"))
			} else {
				fmt.Fprint(w, render.Check("server", true, cfg.Client.ServerURL))
			}

			if _, err := loadDetector(); err != nil {
				fmt.Fprint(w, render.Check("triggers", false, err.Error()))
			} else {
				fmt.Fprint(w, render.Check("triggers", true, orBuiltin(cfg.Triggers.File)))
			}

			fmt.Fprintln(w)
			if !providerOK {
				fmt.Fprintln(w, render.ErrorStyle.Render("  Model provider is not ready."))
				fmt.Fprintln(w, render.HelpStyle.Render("  For local models, start Ollama: ollama serve"))
				return fmt.Errorf("provider check failed")
			}
			fmt.Fprintln(w, render.BannerStyle.Render("  Ready."))
			return nil
		},
	}
}

func orBuiltin(path string) string {
	if path == "" {
		return "built-in table"
	}
	return path
}

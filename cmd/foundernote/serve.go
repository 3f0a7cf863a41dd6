package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/brain"
	"github.com/jeanpaul/foundernote/internal/chat"
	"github.com/jeanpaul/foundernote/internal/health"
	"github.com/jeanpaul/foundernote/internal/provider"
	"github.com/jeanpaul/foundernote/internal/server"
	"github.com/jeanpaul/foundernote/internal/store"
)

func newServeCmd() *cobra.Command {
	var addr, dbPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if dbPath == "" {
				dbPath = cfg.Server.DBPath
			}
			st, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer st.Close()

			llm := makeProvider()
			det, err := loadDetector()
			if err != nil {
				return err
			}

			b := brain.New(st, st, llm, brain.Config{
				Model:        cfg.Provider.Model,
				Temperature:  cfg.Provider.Temperature,
				MaxNoteChars: brain.DefaultConfig().MaxNoteChars,
				Timeout:      cfg.Timeouts.Synthesis,
			})
			c := chat.New(st, st, llm, det, chat.Config{
				Model:          cfg.Provider.Model,
				NormalizeModel: cfg.Provider.NormalizeModel,
				Temperature:    chat.DefaultConfig().Temperature,
				IntentTimeout:  cfg.Timeouts.Intents,
			})
			checker := health.NewChecker(llm, 30*time.Second)

			srv := server.New(server.Deps{
				Brain:   b,
				Chat:    c,
				Intents: st,
				Notes:   st,
				Health:  checker.Healthy,
			}, server.Config{
				UserHeader:       cfg.Server.UserHeader,
				SynthesisTimeout: cfg.Timeouts.Synthesis,
				ChatTimeout:      cfg.Timeouts.Chat,
				IntentsTimeout:   cfg.Timeouts.Intents,
			})

			httpSrv := &http.Server{
				Addr:              addr,
				Handler:           srv.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", addr).Str("db", dbPath).Str("provider", llm.Name()).
					Str("model", cfg.Provider.Model).Msg("foundernote listening")
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server: %w", err)
			case <-ctx.Done():
			}

			log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}

func makeProvider() provider.Provider {
	p := provider.NewOpenAI(cfg.Provider.Name, cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Model, cfg.Timeouts.Provider)
	return provider.WithRetry(p, cfg.Provider.MaxRetries)
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeanpaul/foundernote/internal/client"
	"github.com/jeanpaul/foundernote/internal/config"
	"github.com/jeanpaul/foundernote/internal/logging"
	"github.com/jeanpaul/foundernote/internal/render"
	"github.com/jeanpaul/foundernote/internal/trigger"
)

var version = "dev"

type globalFlags struct {
	configPath string
	logLevel   string
	serverURL  string
	userID     string
	plain      bool
}

var (
	flags globalFlags
	cfg   *config.Config
)

func main() {
	root := &cobra.Command{
		Use:   "foundernote",
		Short: "Voice-note digests, remembered intents and chat over your notes",
		Long: render.BannerStyle.Render("foundernote") + `

Serve the notes API, see what's on your mind per folder, tag or note,
and keep track of what you asked the assistant to remember.

` + render.HelpStyle.Render("Use 'foundernote [command] --help' for more information."),
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.logLevel != "" {
				cfg.Log.Level = flags.logLevel
			}
			if flags.serverURL != "" {
				cfg.Client.ServerURL = flags.serverURL
			}
			if flags.userID != "" {
				cfg.Client.UserID = flags.userID
			}
			logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default: ./config.yaml or ~/.config/foundernote/config.yaml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.serverURL, "server", "", "server URL for client commands")
	pf.StringVarP(&flags.userID, "user", "u", "", "user id sent to the server")
	pf.BoolVar(&flags.plain, "plain", false, "print markdown without terminal styling")

	root.AddCommand(
		newServeCmd(),
		newDigestCmd(),
		newIntentsCmd(),
		newActionsCmd(),
		newChatCmd(),
		newDetectCmd(),
		newSeedCmd(),
		newClearCmd(),
		newDoctorCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, render.ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func newClient() (*client.Client, error) {
	if cfg.Client.UserID == "" {
		return nil, fmt.Errorf("no user id: pass --user or set client.user_id")
	}
	return client.New(client.Config{
		BaseURL:          cfg.Client.ServerURL,
		UserID:           cfg.Client.UserID,
		UserHeader:       cfg.Server.UserHeader,
		SynthesisTimeout: cfg.Timeouts.Synthesis,
		IntentsTimeout:   cfg.Timeouts.Intents,
		ChatTimeout:      cfg.Timeouts.Chat,
	}), nil
}

func loadDetector() (*trigger.Detector, error) {
	if cfg.Triggers.File == "" {
		return trigger.Default(), nil
	}
	t, err := trigger.LoadTable(cfg.Triggers.File)
	if err != nil {
		return nil, fmt.Errorf("trigger table %s: %w", cfg.Triggers.File, err)
	}
	return trigger.New(t), nil
}

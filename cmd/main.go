package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"subnarrate/internal/cli/scheme/colours"
	"subnarrate/internal/config"
	"subnarrate/internal/session"
)

func main() {
	var (
		cfgFile  string
		logLevel string
		app      *session.Session
	)

	// Credentials such as GOOGLE_APPLICATION_CREDENTIALS may live in .env
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("No .env file loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye!"))
	}()

	rootCmd := &cobra.Command{
		Use:   "subnarrate",
		Short: "🎬 Timed subtitles with optional narration",
		Long: `
┌─────────────────────────────────────┐
│  🎬 subnarrate                      │
│  Subtitles that keep up with you    │
└─────────────────────────────────────┘

subnarrate follows a media clock, shows each subtitle cue as it becomes
active and can read it aloud, muting the media while it speaks and pacing
the voice so it finishes inside the cue.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(level)

			if err := config.Init(cfgFile); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			app = session.New(cfg)
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.subnarrate/subnarrate.yaml or ./subnarrate.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	// Play command
	playCmd := &cobra.Command{
		Use:   "play",
		Short: "▶️ Play subtitles against the media clock",
		Long:  "Follow the configured media (or a simulated clock), showing and narrating each cue. Type 'p' to pause/resume and 's' to stop.",
		RunE: func(cmd *cobra.Command, args []string) error {
			silent, _ := cmd.Flags().GetBool("silent")
			return app.Play(cmd.Context(), !silent)
		},
	}
	playCmd.Flags().Bool("silent", false, "Show subtitles without narration")

	// Cues command
	cuesCmd := &cobra.Command{
		Use:   "cues",
		Short: "📜 List cues and their narration rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ListCues()
		},
	}

	// Rate command
	rateCmd := &cobra.Command{
		Use:   "rate [text]",
		Short: "⏱️ Estimate the narration rate for a line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			window, _ := cmd.Flags().GetInt64("window-ms")
			return app.EstimateRate(strings.Join(args, " "), window)
		},
	}
	rateCmd.Flags().Int64P("window-ms", "w", 3000, "How long the line is on screen, in milliseconds")

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List voices of the narration engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ListVoices(cmd.Context())
		},
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "💾 Manage the narration audio cache",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "📊 Show cache status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.CacheStatus(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "🧹 Remove cached narration audio",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.ClearCache(cmd.Context())
			},
		},
	)

	rootCmd.AddCommand(playCmd, cuesCmd, rateCmd, voicesCmd, cacheCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

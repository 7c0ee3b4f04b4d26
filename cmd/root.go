package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/musafirlabs/wahapipe/internal/bootstrap"
	"github.com/musafirlabs/wahapipe/internal/config"
)

// Version is set at build time via -ldflags "-X github.com/musafirlabs/wahapipe/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "wahapipe",
	Short: "wahapipe — inbound WhatsApp message pipeline",
	Long: "wahapipe ingests WhatsApp messages from a WAHA gateway over webhook, " +
		"polling and WebSocket transports, deduplicates them, routes them through " +
		"the booking AI responder and delivers replies.",
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.json5 or $WAHAPIPE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(migrateCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("wahapipe %s\n", Version)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("WAHAPIPE_CONFIG"); v != "" {
		return v
	}
	return "config.json5"
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runPipeline() {
	setupLogging()

	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("config load failed", "path", path, "error", err)
		os.Exit(1)
	}

	app, err := bootstrap.New(cfg, path, Version)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}

	slog.Info("wahapipe starting", "version", Version,
		"webhook", cfg.Channels.Webhook,
		"polling", cfg.Channels.Polling,
		"websocket", cfg.Channels.WebSocket)

	if err := app.Run(context.Background()); err != nil {
		slog.Error("pipeline exited with error", "error", err)
		os.Exit(1)
	}
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

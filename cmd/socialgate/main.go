package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	platformName string
	jsonOutput   bool
)

var rootCmd = &cobra.Command{
	Use:   "socialgate",
	Short: "One interface to Facebook, Instagram, X, LinkedIn and YouTube",
	Long: `socialgate publishes posts, reads metrics, and manages messages and
comments across social platforms through a single normalized interface.

Credentials come from <PLATFORM>_ACCESS_TOKEN style environment variables
or a .env file.`,
	SilenceUsage: true,
}

func init() {
	// Load .env file if present
	_ = godotenv.Load()

	// Set up logging
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(os.Getenv("LOG_LEVEL")),
	})))

	rootCmd.PersistentFlags().StringVarP(&platformName, "platform", "p", "", "Target platform (facebook, instagram, twitter, linkedin, youtube)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

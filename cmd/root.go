package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"storyboard/internal/app"
	"storyboard/pkg/config"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "Turn a video script into a cinematic storyboard",
	Long: `Storyboard asks a text model to split a video script into timed scenes,
each with an image prompt, and renders scene images on demand.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		setupLogger()
	}
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func setupLogger() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadService(cmd *cobra.Command) (*app.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.BuildService(cmd.Context(), cfg)
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2/google"

	"storyboard/internal/credentials"
	"storyboard/pkg/config"
)

var (
	authInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	authSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	authErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Inspect provider credentials",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check which API keys and Google credentials are available",
	Long:  `Report where each API key resolves from and whether Google Application Default Credentials are set up.`,
	RunE:  runAuthStatus,
}

func init() {
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, authInfoStyle.Render("\nCredential Status:\n"))

	var sm *credentials.SecretManagerSource
	if cfg.Secrets.Project != "" && hasADC(ctx) {
		sm, err = credentials.NewSecretManagerSource(ctx, cfg.Secrets.Project, map[credentials.Key]string{
			credentials.Text:  cfg.Secrets.TextName,
			credentials.Image: cfg.Secrets.ImageName,
		})
		if err != nil {
			_, _ = fmt.Fprintln(out, authErrorStyle.Render(fmt.Sprintf("✗ Secret Manager: %v", err)))
		} else {
			defer func() { _ = sm.Close() }()
		}
	}

	keys := []struct {
		key      credentials.Key
		provider string
		env      string
		secret   string
	}{
		{credentials.Text, cfg.Planner.Provider, cfg.TextKeyEnv(), cfg.Secrets.TextName},
		{credentials.Image, cfg.Renderer.Provider, cfg.ImageKeyEnv(), cfg.Secrets.ImageName},
	}

	env := credentials.EnvSource{credentials.Text: cfg.TextKeyEnv(), credentials.Image: cfg.ImageKeyEnv()}
	for _, k := range keys {
		label := fmt.Sprintf("%s key (%s)", k.key, k.provider)

		if _, err := env.Lookup(ctx, k.key); err == nil {
			_, _ = fmt.Fprintln(out, authSuccessStyle.Render(fmt.Sprintf("✓ %s: %s set", label, k.env)))
			continue
		}

		if sm != nil {
			_, err := sm.Lookup(ctx, k.key)
			switch {
			case err == nil:
				_, _ = fmt.Fprintln(out, authSuccessStyle.Render(fmt.Sprintf("✓ %s: Secret Manager secret %s", label, k.secret)))
				continue
			case !errors.Is(err, credentials.ErrMissing):
				_, _ = fmt.Fprintln(out, authErrorStyle.Render(fmt.Sprintf("✗ %s: Secret Manager error: %v", label, err)))
				continue
			}
		}

		_, _ = fmt.Fprintln(out, authInfoStyle.Render(fmt.Sprintf("○ %s: not preset, will be asked for (%s)", label, k.env)))
	}

	switch {
	case hasADC(ctx):
		_, _ = fmt.Fprintln(out, authSuccessStyle.Render("✓ Google Application Default Credentials: found"))
	case cfg.Secrets.Project != "":
		_, _ = fmt.Fprintln(out, authErrorStyle.Render("✗ Google Application Default Credentials: missing, Secret Manager disabled"))
		_, _ = fmt.Fprintln(out, authInfoStyle.Render("  Run: gcloud auth application-default login"))
	default:
		_, _ = fmt.Fprintln(out, authInfoStyle.Render("○ Google Application Default Credentials: not configured (optional)"))
	}

	_, _ = fmt.Fprintln(out)
	return nil
}

func hasADC(ctx context.Context) bool {
	_, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	return err == nil
}

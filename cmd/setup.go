package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"storyboard/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard for Storyboard",
	Long:  `Configure API keys, create the export directory, and optionally link a Google Cloud project.`,
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

// envOrder is the order keys are written to .env.
var envOrder = []string{
	"GOOGLE_CLOUD_PROJECT",
	"GEMINI_API_KEY",
	"GROQ_API_KEY",
	"OPENAI_API_KEY",
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println(tui.TitleStyle.Render("🎬 Storyboard Setup"))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Creating directories", createDirectories},
		{"Configuring environment", configureEnv},
	}

	for _, step := range steps {
		if err := step.fn(); err != nil {
			return fmt.Errorf("%s: %w", step.name, err)
		}
	}

	return nil
}

func createDirectories() error {
	if err := os.MkdirAll("output", 0755); err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	fmt.Println(tui.SuccessStyle.Render("✓ Created output directory"))
	return nil
}

func configureEnv() error {
	if _, err := os.Stat(".env"); err == nil {
		var overwrite bool
		if err := huh.NewConfirm().
			Title("Found existing .env file").
			Description("Overwrite?").
			Value(&overwrite).
			Run(); err != nil {
			return err
		}
		if !overwrite {
			fmt.Println(tui.InfoStyle.Render("Kept existing .env"))
			return nil
		}
	}

	env := make(map[string]string)

	if err := configureGCP(env); err != nil {
		return err
	}

	if err := configureKeys(env); err != nil {
		return err
	}

	return writeEnvFile(".env", env)
}

func configureGCP(env map[string]string) error {
	var setupGCP bool
	if err := huh.NewConfirm().
		Title("Setup Google Cloud?").
		Description("Optional: Secret Manager for API keys and Cloud Storage for exports").
		Value(&setupGCP).
		Run(); err != nil {
		return err
	}

	if !setupGCP {
		return nil
	}

	if !commandExists("gcloud") {
		fmt.Println(tui.WarnStyle.Render("gcloud CLI not found - install from https://cloud.google.com/sdk/docs/install"))
		return nil
	}

	project, err := getGCPProject()
	if err != nil {
		fmt.Println(tui.WarnStyle.Render(fmt.Sprintf("GCP setup skipped: %v", err)))
		return nil
	}
	env["GOOGLE_CLOUD_PROJECT"] = project

	if err := enableGCPAPIs(project); err != nil {
		fmt.Println(tui.WarnStyle.Render(fmt.Sprintf("API enablement failed: %v", err)))
	}

	return nil
}

func getGCPProject() (string, error) {
	existing := getActiveProject()

	var choice string
	options := []huh.Option[string]{
		huh.NewOption("Enter project ID manually", "manual"),
	}
	if existing != "" {
		options = append([]huh.Option[string]{
			huh.NewOption(fmt.Sprintf("Use current: %s", existing), existing),
		}, options...)
	}

	if err := huh.NewSelect[string]().
		Title("Google Cloud Project").
		Options(options...).
		Value(&choice).
		Run(); err != nil {
		return "", err
	}

	if choice != "manual" {
		return choice, nil
	}

	var projectID string
	if err := huh.NewInput().
		Title("Project ID").
		Value(&projectID).
		Validate(required("Project ID")).
		Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(projectID), nil
}

func getActiveProject() string {
	out, err := exec.Command("gcloud", "config", "get-value", "project").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func enableGCPAPIs(project string) error {
	apis := []string{
		"generativelanguage.googleapis.com",
		"secretmanager.googleapis.com",
		"storage.googleapis.com",
	}

	return runWithSpinner("Enabling APIs", func() error {
		args := append([]string{"services", "enable"}, apis...)
		args = append(args, "--project", project)
		return runSetupCmd("gcloud", args...)
	})
}

func configureKeys(env map[string]string) error {
	var geminiKey, groqKey, openaiKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Gemini API Key").
				Description("Scene planning and Imagen images - https://aistudio.google.com/app/apikey").
				EchoMode(huh.EchoModePassword).
				Value(&geminiKey),
			huh.NewInput().
				Title("Groq API Key (optional)").
				Description("https://console.groq.com/keys").
				EchoMode(huh.EchoModePassword).
				Value(&groqKey),
			huh.NewInput().
				Title("OpenAI API Key (optional)").
				Description("https://platform.openai.com/api-keys").
				EchoMode(huh.EchoModePassword).
				Value(&openaiKey),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	setIfPresent(env, "GEMINI_API_KEY", geminiKey)
	setIfPresent(env, "GROQ_API_KEY", groqKey)
	setIfPresent(env, "OPENAI_API_KEY", openaiKey)

	if len(env) == 0 {
		fmt.Println(tui.WarnStyle.Render("No keys entered - you will be asked for them when a session needs one"))
	}
	return nil
}

func setIfPresent(env map[string]string, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		env[key] = value
	}
}

func writeEnvFile(path string, env map[string]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for _, key := range envOrder {
		if val, ok := env[key]; ok && val != "" {
			if _, err := fmt.Fprintf(f, "%s=%s\n", key, val); err != nil {
				return err
			}
		}
	}

	fmt.Println(tui.SuccessStyle.Render("✓ Created " + path))
	printNextSteps()
	return nil
}

func printNextSteps() {
	fmt.Println()
	fmt.Println(tui.TitleStyle.Render("Next steps:"))
	fmt.Println("  1. Check keys: storyboard auth status")
	fmt.Println("  2. Open the web page: storyboard serve --open")
	fmt.Println("  3. Or stay in the terminal: storyboard session")
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func runSetupCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %s", err, stderr.String())
	}
	return nil
}

func runWithSpinner(title string, fn func() error) error {
	var err error
	_ = spinner.New().
		Title(title).
		Action(func() { err = fn() }).
		Run()
	if err != nil {
		return err
	}
	fmt.Println(tui.SuccessStyle.Render("✓ " + title))
	return nil
}

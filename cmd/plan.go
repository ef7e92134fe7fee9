package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"storyboard/internal/scene"
	"storyboard/internal/session"
	"storyboard/internal/tui"
)

var (
	planFile string
	planJSON bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan scenes for a script without interaction",
	Long:  `Read a script from --file or stdin, plan its scenes, and print them as cards or JSON.`,
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFile, "file", "f", "", "Script file (default stdin)")
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Print the scene set as JSON")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	script, err := readScript(cmd.InOrStdin(), planFile)
	if err != nil {
		return err
	}

	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	b := svc.NewBoard(nil)
	if _, err := b.Analyze(cmd.Context(), script); err != nil {
		return fmt.Errorf("%s", session.UserMessage(err))
	}

	out := cmd.OutOrStdout()
	if planJSON {
		set := b.Session().Scenes()
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(scene.Set{Scenes: set.Ordered()})
	}

	_, err = fmt.Fprintln(out, tui.RenderBoard(b.Views()))
	return err
}

func readScript(stdin io.Reader, path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}

package cmd

import (
	"github.com/spf13/cobra"

	"storyboard/internal/app"
	"storyboard/internal/credentials"
	"storyboard/internal/tui"
)

var sessionOpenImages bool

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive storyboard session in the terminal",
	Long: `Paste a script, review the planned scenes, and render images scene by scene.
Keys not found in the environment or Secret Manager are asked for once per session.`,
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().BoolVar(&sessionOpenImages, "open", true, "Open generated images in the system viewer")
	rootCmd.AddCommand(sessionCmd)
}

func runSession(cmd *cobra.Command, args []string) error {
	svc, err := loadService(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	asked := credentials.NewCached(credentials.NewPromptSource(app.KeyLabels(svc.Config())))
	keys := credentials.Chain{svc.Preset(), asked}

	ui := tui.New(svc.NewBoard(asked), tui.Options{
		Out:          cmd.OutOrStdout(),
		Credentials:  keys,
		Export:       svc.Export,
		ExportTarget: svc.Config().Export.Target,
		OpenImages:   sessionOpenImages,
	})
	return ui.Run(cmd.Context())
}

package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
)

// Prompter asks the user for input. The default implementation uses huh.
type Prompter interface {
	Script(initial string) (string, error)
	Action(choices []string) (string, error)
	Scene(numbers []int) (int, error)
	Prompt(current string) (string, error)
	ExportTarget(initial string) (string, error)
}

type huhPrompter struct{}

func (huhPrompter) Script(initial string) (string, error) {
	script := initial
	err := huh.NewText().
		Title("Paste your video script here:").
		Lines(10).
		CharLimit(0).
		Value(&script).
		Run()
	return script, err
}

func (huhPrompter) Action(choices []string) (string, error) {
	var choice string
	err := huh.NewSelect[string]().
		Title("What next?").
		Options(huh.NewOptions(choices...)...).
		Value(&choice).
		Run()
	return choice, err
}

func (huhPrompter) Scene(numbers []int) (int, error) {
	options := make([]huh.Option[int], 0, len(numbers))
	for _, n := range numbers {
		options = append(options, huh.NewOption(fmt.Sprintf("Scene %d", n), n))
	}

	var number int
	err := huh.NewSelect[int]().
		Title("Which scene?").
		Options(options...).
		Value(&number).
		Run()
	return number, err
}

func (huhPrompter) Prompt(current string) (string, error) {
	prompt := current
	err := huh.NewText().
		Title("Image Prompt").
		Lines(5).
		CharLimit(0).
		Value(&prompt).
		Run()
	return prompt, err
}

func (huhPrompter) ExportTarget(initial string) (string, error) {
	target := initial
	err := huh.NewInput().
		Title("Export to").
		Description("A directory or gs://bucket/prefix").
		Value(&target).
		Run()
	return target, err
}

func runWithSpinner(title string, fn func()) error {
	return spinner.New().
		Title(title).
		Action(fn).
		Run()
}

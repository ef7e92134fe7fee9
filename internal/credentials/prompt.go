package credentials

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// PromptSource asks the user for a key with a masked terminal input.
type PromptSource struct {
	labels map[Key]string
	ask    func(title string) (string, error)
}

func NewPromptSource(labels map[Key]string) *PromptSource {
	return &PromptSource{labels: labels, ask: askMasked}
}

func (p *PromptSource) Lookup(_ context.Context, key Key) (string, error) {
	label, ok := p.labels[key]
	if !ok {
		return "", missing(key)
	}

	value, err := p.ask(label)
	if err != nil {
		return "", fmt.Errorf("prompt for %s: %w", label, err)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", missing(key)
	}
	return value, nil
}

func askMasked(title string) (string, error) {
	var value string
	err := huh.NewInput().
		Title(title).
		Description("Not found in the environment or secret store. Leave empty to cancel.").
		EchoMode(huh.EchoModePassword).
		Value(&value).
		Run()
	return value, err
}

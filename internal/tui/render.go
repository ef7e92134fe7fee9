package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"storyboard/internal/board"
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1).
			Width(80)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	captionStyle = lipgloss.NewStyle().Italic(true)
	labelStyle   = lipgloss.NewStyle().Faint(true)
)

// RenderCard draws one scene: number, time, script text, prompt and any
// image or notice attached to it.
func RenderCard(v board.View) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("Scene %d", v.Number)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Time: ") + v.Timestamp + "\n")
	if v.Caption != "" {
		b.WriteString(captionStyle.Render(`"`+v.Caption+`"`) + "\n")
	}
	b.WriteString(labelStyle.Render("Image Prompt: ") + v.Prompt)

	if v.Image != nil {
		b.WriteString("\n" + SuccessStyle.Render(fmt.Sprintf("✓ Image ready (%s, %d bytes)", v.Image.MIMEType, len(v.Image.Data))))
	}
	if v.Warning != "" {
		b.WriteString("\n" + WarnStyle.Render(v.Warning))
	}
	if v.Info != "" {
		b.WriteString("\n" + InfoStyle.Render(v.Info))
	}

	return cardStyle.Render(b.String())
}

func RenderBoard(views []board.View) string {
	cards := make([]string, 0, len(views))
	for _, v := range views {
		cards = append(cards, RenderCard(v))
	}
	return strings.Join(cards, "\n")
}

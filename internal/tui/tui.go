// Package tui runs an interactive storyboard session in the terminal.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/pkg/browser"

	"storyboard/internal/board"
	"storyboard/internal/credentials"
	"storyboard/internal/session"
)

const (
	ChoiceGenerate  = "Generate image for a scene"
	ChoiceEdit      = "Edit a scene prompt"
	ChoiceExport    = "Export storyboard"
	ChoiceReanalyze = "Analyze a new script"
	ChoiceQuit      = "Quit"
)

type ExportFunc func(ctx context.Context, b *board.Board, target string) ([]string, error)

type Options struct {
	Out          io.Writer
	Prompter     Prompter
	Spin         func(title string, fn func()) error
	Export       ExportFunc
	ExportTarget string

	// Credentials, when set, is resolved before each action so any masked
	// prompt runs outside the spinner.
	Credentials credentials.Source

	// OpenImages shows each generated image in the system viewer.
	OpenImages bool
	Open       func(path string) error
}

type UI struct {
	board  *board.Board
	opts   Options
	script string

	tmpFiles []string
}

func New(b *board.Board, opts Options) *UI {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Prompter == nil {
		opts.Prompter = huhPrompter{}
	}
	if opts.Spin == nil {
		opts.Spin = runWithSpinner
	}
	if opts.Open == nil {
		opts.Open = browser.OpenFile
	}
	return &UI{board: b, opts: opts}
}

// Run loops until the user quits. Temporary image files are removed on return.
func (u *UI) Run(ctx context.Context) error {
	defer u.cleanup()

	u.println(TitleStyle.Render("🎬 AI Storyboard Generator"))

	if err := u.analyze(ctx, ""); err != nil {
		return quitOnAbort(err)
	}

	for {
		choice, err := u.opts.Prompter.Action(u.choices())
		if err != nil {
			return quitOnAbort(err)
		}

		switch choice {
		case ChoiceGenerate:
			err = u.generate(ctx)
		case ChoiceEdit:
			err = u.edit()
		case ChoiceExport:
			err = u.export(ctx)
		case ChoiceReanalyze:
			err = u.analyze(ctx, u.script)
		case ChoiceQuit:
			return nil
		}
		if err != nil {
			return quitOnAbort(err)
		}
	}
}

func (u *UI) choices() []string {
	if u.board.Len() == 0 {
		return []string{ChoiceReanalyze, ChoiceQuit}
	}
	choices := []string{ChoiceGenerate, ChoiceEdit}
	if u.opts.Export != nil {
		choices = append(choices, ChoiceExport)
	}
	return append(choices, ChoiceReanalyze, ChoiceQuit)
}

// analyze asks for a script and plans it. Action failures are reported and
// leave the board as it was; only prompt errors are returned.
func (u *UI) analyze(ctx context.Context, initial string) error {
	script, err := u.opts.Prompter.Script(initial)
	if err != nil {
		return err
	}
	u.script = script

	if strings.TrimSpace(script) == "" {
		u.println(ErrorStyle.Render("✗ " + session.UserMessage(session.ErrEmptyScript)))
		return nil
	}

	if !u.ensureKey(ctx, credentials.Text) {
		return nil
	}

	var n int
	var actionErr error
	if err := u.opts.Spin("Director is planning the shots...", func() {
		n, actionErr = u.board.Analyze(ctx, script)
	}); err != nil {
		return err
	}

	if actionErr != nil {
		u.println(ErrorStyle.Render("✗ " + session.UserMessage(actionErr)))
		return nil
	}

	u.println(SuccessStyle.Render(fmt.Sprintf("✓ Generated %d scenes!", n)))
	u.println(RenderBoard(u.board.Views()))
	return nil
}

func (u *UI) ensureKey(ctx context.Context, key credentials.Key) bool {
	if u.opts.Credentials == nil {
		return true
	}
	if _, err := u.opts.Credentials.Lookup(ctx, key); err != nil {
		u.println(ErrorStyle.Render("✗ " + session.UserMessage(err)))
		return false
	}
	return true
}

func (u *UI) pickScene() (int, error) {
	views := u.board.Views()
	numbers := make([]int, 0, len(views))
	for _, v := range views {
		numbers = append(numbers, v.Number)
	}
	return u.opts.Prompter.Scene(numbers)
}

func (u *UI) generate(ctx context.Context) error {
	number, err := u.pickScene()
	if err != nil {
		return err
	}

	if !u.ensureKey(ctx, credentials.Image) {
		return nil
	}

	var actionErr error
	if err := u.opts.Spin("Painting...", func() {
		actionErr = u.board.GenerateImage(ctx, number)
	}); err != nil {
		return err
	}

	if actionErr != nil && !errors.Is(actionErr, session.ErrImageGeneration) {
		u.println(ErrorStyle.Render("✗ " + session.UserMessage(actionErr)))
		return nil
	}

	v, _ := u.board.View(number)
	u.println(RenderCard(v))

	if v.Image != nil && u.opts.OpenImages {
		u.openImage(v)
	}
	return nil
}

func (u *UI) openImage(v board.View) {
	f, err := os.CreateTemp("", fmt.Sprintf("storyboard-scene-%d-*%s", v.Number, v.Image.Ext()))
	if err != nil {
		slog.Warn("Failed to create temp image", "scene", v.Number, "error", err)
		return
	}
	u.tmpFiles = append(u.tmpFiles, f.Name())

	_, err = f.Write(v.Image.Data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		slog.Warn("Failed to write temp image", "path", f.Name(), "error", err)
		return
	}

	if err := u.opts.Open(f.Name()); err != nil {
		u.println(InfoStyle.Render("Image saved to " + f.Name()))
	}
}

func (u *UI) edit() error {
	number, err := u.pickScene()
	if err != nil {
		return err
	}

	v, _ := u.board.View(number)
	prompt, err := u.opts.Prompter.Prompt(v.Prompt)
	if err != nil {
		return err
	}

	if err := u.board.EditPrompt(number, prompt); err != nil {
		u.println(ErrorStyle.Render("✗ " + session.UserMessage(err)))
	}
	return nil
}

func (u *UI) export(ctx context.Context) error {
	target, err := u.opts.Prompter.ExportTarget(u.opts.ExportTarget)
	if err != nil {
		return err
	}

	written, err := u.opts.Export(ctx, u.board, target)
	if err != nil {
		u.println(ErrorStyle.Render("✗ Export failed: " + session.UserMessage(err)))
		return nil
	}

	for _, w := range written {
		u.println(SuccessStyle.Render("✓ " + w))
	}
	return nil
}

func (u *UI) cleanup() {
	for _, path := range u.tmpFiles {
		if err := os.Remove(path); err != nil {
			slog.Debug("Failed to remove temp image", "path", path, "error", err)
		}
	}
	u.tmpFiles = nil
}

func (u *UI) println(s string) {
	_, _ = fmt.Fprintln(u.opts.Out, s)
}

func quitOnAbort(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return nil
	}
	return err
}

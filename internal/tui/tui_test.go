package tui

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/huh"

	"storyboard/internal/board"
	"storyboard/internal/credentials"
	"storyboard/internal/imagegen"
	"storyboard/internal/llm"
	"storyboard/internal/scene"
	"storyboard/internal/session"
	"storyboard/internal/storage"
)

type scriptedPrompter struct {
	initials []string
	scripts  []string
	actions []string
	scene   int
	prompt  string
	target  string
}

func (p *scriptedPrompter) Script(initial string) (string, error) {
	p.initials = append(p.initials, initial)
	if len(p.scripts) == 0 {
		return "", huh.ErrUserAborted
	}
	s := p.scripts[0]
	p.scripts = p.scripts[1:]
	return s, nil
}

func (p *scriptedPrompter) Action(choices []string) (string, error) {
	if len(p.actions) == 0 {
		return "", huh.ErrUserAborted
	}
	a := p.actions[0]
	p.actions = p.actions[1:]
	return a, nil
}

func (p *scriptedPrompter) Scene([]int) (int, error) { return p.scene, nil }
func (p *scriptedPrompter) Prompt(string) (string, error) { return p.prompt, nil }
func (p *scriptedPrompter) ExportTarget(string) (string, error) {
	return p.target, nil
}

type fakePlanner struct{}

func (fakePlanner) PlanScenes(context.Context, string) (*scene.Set, error) {
	return &scene.Set{Scenes: []scene.Scene{
		{Number: 1, Timestamp: "00:00-00:03", ScriptLine: "Dawn breaks.", ImagePrompt: "original prompt"},
		{Number: 2, Timestamp: "00:03-00:06", VisualDescription: "Empty road.", ImagePrompt: "second prompt"},
	}}, nil
}

type recordingRenderer struct {
	prompts []string
}

func (r *recordingRenderer) GenerateImage(_ context.Context, prompt string) (*imagegen.Image, error) {
	r.prompts = append(r.prompts, prompt)
	return &imagegen.Image{Data: []byte("png"), MIMEType: "image/png"}, nil
}

func newTestBoard(keys credentials.Source, renderer *recordingRenderer) *board.Board {
	return board.New(session.New(session.Options{
		Credentials: keys,
		Planner: func(context.Context, string) (llm.Planner, error) {
			return fakePlanner{}, nil
		},
		Renderer: func(context.Context, string) (imagegen.Renderer, error) {
			return renderer, nil
		},
		PlannerName:  "fake",
		RendererName: "fake",
	}))
}

func runNow(_ string, fn func()) error {
	fn()
	return nil
}

func bothKeys() *credentials.Static {
	keys := credentials.NewStatic()
	keys.Set(credentials.Text, "text")
	keys.Set(credentials.Image, "image")
	return keys
}

func TestRunSession(t *testing.T) {
	dir := t.TempDir()
	renderer := &recordingRenderer{}
	b := newTestBoard(bothKeys(), renderer)

	var opened []string
	var out bytes.Buffer
	ui := New(b, Options{
		Out: &out,
		Prompter: &scriptedPrompter{
			scripts: []string{"Dawn breaks. Empty road."},
			actions: []string{ChoiceEdit, ChoiceGenerate, ChoiceExport, ChoiceQuit},
			scene:   1,
			prompt:  "edited prompt",
			target:  dir,
		},
		Spin: runNow,
		Export: func(ctx context.Context, b *board.Board, target string) ([]string, error) {
			return b.Export(ctx, storage.NewLocalStorage(target))
		},
		OpenImages: true,
		Open: func(path string) error {
			opened = append(opened, path)
			return nil
		},
	})

	if err := ui.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Generated 2 scenes!", "Scene 1", "Dawn breaks.", "Empty road.", "Image ready", "scenes.json", "scene_1.png"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}

	if len(renderer.prompts) != 1 || renderer.prompts[0] != "original prompt" {
		t.Errorf("renderer got %v, want the original prompt", renderer.prompts)
	}
	if v, _ := b.View(1); v.Prompt != "edited prompt" {
		t.Errorf("displayed prompt = %q", v.Prompt)
	}

	if len(opened) != 1 {
		t.Fatalf("opened %d images, want 1", len(opened))
	}
	if _, err := os.Stat(opened[0]); !os.IsNotExist(err) {
		t.Errorf("temp image %s not removed at session end", opened[0])
	}
}

func TestRunMissingKey(t *testing.T) {
	keys := credentials.NewStatic()
	var out bytes.Buffer

	ui := New(newTestBoard(keys, &recordingRenderer{}), Options{
		Out:         &out,
		Prompter:    &scriptedPrompter{scripts: []string{"A script."}, actions: []string{ChoiceQuit}},
		Spin:        runNow,
		Credentials: keys,
	})

	if err := ui.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), "API key is missing") {
		t.Errorf("output = %q, want missing key message", out.String())
	}
}

func TestRunAbort(t *testing.T) {
	ui := New(newTestBoard(bothKeys(), &recordingRenderer{}), Options{
		Out:      &bytes.Buffer{},
		Prompter: &scriptedPrompter{},
		Spin:     runNow,
	})
	if err := ui.Run(context.Background()); err != nil {
		t.Errorf("Run() after abort error = %v, want nil", err)
	}
}

type countingSource struct {
	lookups int
}

func (c *countingSource) Lookup(context.Context, credentials.Key) (string, error) {
	c.lookups++
	return "", credentials.ErrMissing
}

func TestRunEmptyScript(t *testing.T) {
	var out bytes.Buffer
	keys := &countingSource{}
	p := &scriptedPrompter{scripts: []string{"  "}, actions: []string{ChoiceQuit}}
	ui := New(newTestBoard(bothKeys(), &recordingRenderer{}), Options{Out: &out, Prompter: p, Spin: runNow, Credentials: keys})

	if err := ui.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out.String(), "Please enter a script!") {
		t.Errorf("output = %q", out.String())
	}
	if keys.lookups != 0 {
		t.Errorf("blank script triggered %d key lookups", keys.lookups)
	}
}

func TestReanalyzeKeepsScript(t *testing.T) {
	p := &scriptedPrompter{
		scripts: []string{"Dawn breaks.", "Dawn breaks again."},
		actions: []string{ChoiceReanalyze, ChoiceQuit},
	}
	ui := New(newTestBoard(bothKeys(), &recordingRenderer{}), Options{Out: &bytes.Buffer{}, Prompter: p, Spin: runNow})

	if err := ui.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(p.initials) != 2 || p.initials[0] != "" || p.initials[1] != "Dawn breaks." {
		t.Errorf("script prompts started from %q, want previous script on re-analyze", p.initials)
	}
}

func TestChoices(t *testing.T) {
	b := newTestBoard(bothKeys(), &recordingRenderer{})
	ui := New(b, Options{})

	if got := ui.choices(); len(got) != 2 || got[0] != ChoiceReanalyze {
		t.Errorf("choices() before analyze = %v", got)
	}

	if _, err := b.Analyze(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if got := ui.choices(); len(got) != 4 {
		t.Errorf("choices() without exporter = %v", got)
	}
}

func TestRenderCard(t *testing.T) {
	card := RenderCard(board.View{
		Number:    3,
		Timestamp: "00:07-00:10",
		Caption:   "The end.",
		Prompt:    "Cinematic fade",
		Warning:   "Image gen failed: billing",
		Info:      board.AccessHint,
	})

	for _, want := range []string{"Scene 3", "00:07-00:10", "The end.", "Cinematic fade", "Image gen failed", "Note:"} {
		if !strings.Contains(card, want) {
			t.Errorf("card missing %q:\n%s", want, card)
		}
	}
}

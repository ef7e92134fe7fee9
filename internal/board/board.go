// Package board keeps the per-scene display state of a session: the editable
// prompt copy, the last generated image and any notice shown next to a scene.
package board

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"storyboard/internal/imagegen"
	"storyboard/internal/scene"
	"storyboard/internal/session"
	"storyboard/internal/storage"
)

// AccessHint is shown with every per-scene image failure.
const AccessHint = "Note: If image generation fails, your API key might not have access to the image model yet. You may need to enable billing for your account."

// ErrStaleImage is returned when the scene set was replaced while its image
// was being generated. The image is dropped.
var ErrStaleImage = errors.New("scenes were regenerated while the image was being made")

type View struct {
	Number    int
	Timestamp string
	Caption   string
	Prompt    string
	Image     *imagegen.Image
	Warning   string
	Info      string
}

// DataURI returns the image inlined as a data URI, or "" when there is none.
func (v View) DataURI() string {
	if v.Image == nil || len(v.Image.Data) == 0 {
		return ""
	}
	mime := v.Image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(v.Image.Data)
}

type Board struct {
	session *session.Session

	mu    sync.Mutex
	gen   uint64
	order []int
	views map[int]*View
}

func New(s *session.Session) *Board {
	return &Board{session: s, views: map[int]*View{}}
}

func (b *Board) Session() *session.Session {
	return b.session
}

// Analyze plans the script and, on success, replaces all display state with
// fresh views of the new set. On failure the current views stay untouched.
func (b *Board) Analyze(ctx context.Context, script string) (int, error) {
	n, err := b.session.Analyze(ctx, script)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	// a concurrent Analyze may already have shown the latest set
	if set, gen := b.session.Snapshot(); gen != b.gen {
		b.gen = gen
		b.reset(set)
	}
	return n, nil
}

func (b *Board) Reset(set *scene.Set) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset(set)
}

func (b *Board) reset(set *scene.Set) {
	b.order = b.order[:0]
	b.views = make(map[int]*View, set.Len())
	for _, sc := range set.Ordered() {
		b.order = append(b.order, sc.Number)
		b.views[sc.Number] = &View{
			Number:    sc.Number,
			Timestamp: sc.Timestamp,
			Caption:   sc.Caption(),
			Prompt:    sc.ImagePrompt,
		}
	}
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}

// Views returns copies of all views in scene_number order.
func (b *Board) Views() []View {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]View, 0, len(b.order))
	for _, n := range b.order {
		out = append(out, *b.views[n])
	}
	return out
}

func (b *Board) View(number int) (View, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.views[number]
	if !ok {
		return View{}, false
	}
	return *v, true
}

// EditPrompt changes the displayed prompt of one scene. The edit is never
// written back to the scene set and never sent to the renderer.
func (b *Board) EditPrompt(number int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	v, ok := b.views[number]
	if !ok {
		return fmt.Errorf("%w: %d", session.ErrUnknownScene, number)
	}
	v.Prompt = text
	return nil
}

// GenerateImage renders one scene. A renderer failure is recorded as a notice
// on that scene only and is also returned.
func (b *Board) GenerateImage(ctx context.Context, number int) error {
	img, rendered, err := b.session.RenderScene(ctx, number)

	b.mu.Lock()
	defer b.mu.Unlock()

	if rendered != b.gen {
		slog.Warn("Dropping image of a replaced scene set", "scene", number)
		if err != nil {
			return err
		}
		return ErrStaleImage
	}

	v, ok := b.views[number]
	if !ok {
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %d", session.ErrUnknownScene, number)
	}

	switch {
	case err == nil:
		v.Image = img
		v.Warning = ""
		v.Info = ""
	case errors.Is(err, session.ErrImageGeneration):
		v.Image = nil
		v.Warning = "Image gen failed: " + session.ImageFailure(err)
		v.Info = AccessHint
	}
	return err
}

// Export writes scenes.json with the held set and one scene_<n><ext> file per
// generated image. It returns the written locations.
func (b *Board) Export(ctx context.Context, ex storage.Exporter) ([]string, error) {
	set := b.session.Scenes()
	if set == nil {
		return nil, session.ErrNoScenes
	}

	data, err := json.MarshalIndent(scene.Set{Scenes: set.Ordered()}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scenes: %w", err)
	}

	loc, err := ex.Save(ctx, "scenes.json", data, "application/json")
	if err != nil {
		return nil, fmt.Errorf("export scenes: %w", err)
	}
	written := []string{loc}

	for _, v := range b.Views() {
		if v.Image == nil {
			continue
		}
		name := fmt.Sprintf("scene_%d%s", v.Number, v.Image.Ext())
		loc, err := ex.Save(ctx, name, v.Image.Data, v.Image.MIMEType)
		if err != nil {
			return written, fmt.Errorf("export %s: %w", name, err)
		}
		written = append(written, loc)
	}

	slog.Info("Storyboard exported", "files", len(written))
	return written, nil
}

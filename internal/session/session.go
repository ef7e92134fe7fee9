// Package session holds the scene set of one interactive use of the tool and
// sequences the planner and renderer calls against it.
//
// A session is Empty until the first successful Analyze and Populated after
// it. Every later successful Analyze replaces the held set wholesale. Actions
// are serialized: a pending call blocks every other action of the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"storyboard/internal/credentials"
	"storyboard/internal/imagegen"
	"storyboard/internal/llm"
	"storyboard/internal/metrics"
	"storyboard/internal/scene"
)

var (
	ErrEmptyScript     = errors.New("script is empty")
	ErrNoScenes        = errors.New("no scenes planned yet")
	ErrUnknownScene    = errors.New("unknown scene")
	ErrGeneration      = errors.New("error generating scenes")
	ErrImageGeneration = errors.New("image generation failed")
)

type State int

const (
	Empty State = iota
	Populated
)

func (s State) String() string {
	if s == Populated {
		return "populated"
	}
	return "empty"
}

type Options struct {
	Credentials  credentials.Source
	Planner      llm.Factory
	Renderer     imagegen.Factory
	PlannerName  string
	RendererName string
}

type Session struct {
	mu   sync.Mutex
	opts Options
	set  *scene.Set
	gen  uint64
}

func New(opts Options) *Session {
	return &Session{opts: opts}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		return Empty
	}
	return Populated
}

// Scenes returns the held set, or nil while Empty.
func (s *Session) Scenes() *scene.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Snapshot returns the held set with its generation, which increases on every
// successful Analyze.
func (s *Session) Snapshot() (*scene.Set, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set, s.gen
}

// Analyze plans the script and replaces the held set on success. On any
// failure the previous state is kept.
func (s *Session) Analyze(ctx context.Context, script string) (int, error) {
	if strings.TrimSpace(script) == "" {
		return 0, ErrEmptyScript
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	apiKey, err := s.opts.Credentials.Lookup(ctx, credentials.Text)
	if err != nil {
		return 0, err
	}

	planner, err := s.opts.Planner(ctx, apiKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	set, err := planner.PlanScenes(ctx, script)
	metrics.ObservePlan(s.opts.PlannerName, err)
	if err != nil {
		slog.Error("Scene planning failed", "provider", s.opts.PlannerName, "error", err)
		return 0, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	s.set = set
	s.gen++
	slog.Info("Scenes planned", "provider", s.opts.PlannerName, "count", set.Len())
	return set.Len(), nil
}

// GenerateImage renders the scene with the given number from the prompt held
// in the set. Display-side edits to the prompt are never sent.
func (s *Session) GenerateImage(ctx context.Context, number int) (*imagegen.Image, error) {
	img, _, err := s.RenderScene(ctx, number)
	return img, err
}

// RenderScene is GenerateImage that also returns the generation of the set
// the scene was taken from, so callers can tell when a later Analyze
// replaced it.
func (s *Session) RenderScene(ctx context.Context, number int) (*imagegen.Image, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen := s.gen
	if s.set == nil {
		return nil, gen, ErrNoScenes
	}

	sc, ok := s.set.Find(number)
	if !ok {
		return nil, gen, fmt.Errorf("%w: %d", ErrUnknownScene, number)
	}

	apiKey, err := s.opts.Credentials.Lookup(ctx, credentials.Image)
	if err != nil {
		return nil, gen, err
	}

	renderer, err := s.opts.Renderer(ctx, apiKey)
	if err != nil {
		return nil, gen, fmt.Errorf("%w: %w", ErrImageGeneration, err)
	}

	img, err := renderer.GenerateImage(ctx, sc.ImagePrompt)
	metrics.ObserveImage(s.opts.RendererName, err)
	if err != nil {
		slog.Warn("Image generation failed", "scene", number, "provider", s.opts.RendererName, "error", err)
		return nil, gen, fmt.Errorf("%w: %w", ErrImageGeneration, err)
	}

	slog.Info("Image generated", "scene", number, "bytes", len(img.Data))
	return img, gen, nil
}

// ImageFailure returns the renderer's own message from an ErrImageGeneration
// error, without the sentinel prefix.
func ImageFailure(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, ErrImageGeneration.Error()+": ")
}

// UserMessage turns an action error into the text shown to the user.
func UserMessage(err error) string {
	var parseErr *scene.ParseError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyScript):
		return "Please enter a script!"
	case errors.Is(err, credentials.ErrMissing):
		return "API key is missing: " + err.Error()
	case errors.As(err, &parseErr):
		return "Error generating scenes: the model reply was not a valid scene list (" + parseErr.Error() + ")"
	default:
		return err.Error()
	}
}

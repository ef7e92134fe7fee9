package app

import (
	"context"
	"errors"

	"storyboard/internal/board"
	"storyboard/internal/credentials"
	"storyboard/internal/imagegen"
	"storyboard/internal/llm"
	"storyboard/internal/session"
	"storyboard/internal/storage"
	"storyboard/pkg/config"
)

// Service holds the provider factories and the preset credential store shared
// by every session of one process.
type Service struct {
	cfg      *config.Config
	planner  llm.Factory
	renderer imagegen.Factory
	preset   credentials.Source
	closers  []func() error
}

type ServiceOptions struct {
	Config   *config.Config
	Planner  llm.Factory
	Renderer imagegen.Factory
	Preset   credentials.Source
	Closers  []func() error
}

func NewService(opts ServiceOptions) *Service {
	return &Service{
		cfg:      opts.Config,
		planner:  opts.Planner,
		renderer: opts.Renderer,
		preset:   opts.Preset,
		closers:  opts.Closers,
	}
}

func (s *Service) Config() *config.Config {
	return s.cfg
}

// Preset returns the store checked before any interactive input.
func (s *Service) Preset() credentials.Source {
	return s.preset
}

// NewBoard starts a fresh session. Keys missing from the preset store are
// looked up in fallback, which may be nil.
func (s *Service) NewBoard(fallback credentials.Source) *board.Board {
	src := credentials.Chain{s.preset}
	if fallback != nil {
		src = append(src, fallback)
	}

	return board.New(session.New(session.Options{
		Credentials:  src,
		Planner:      s.planner,
		Renderer:     s.renderer,
		PlannerName:  s.cfg.Planner.Provider,
		RendererName: s.cfg.Renderer.Provider,
	}))
}

// Export writes the board to target, or to the configured export target when
// target is empty.
func (s *Service) Export(ctx context.Context, b *board.Board, target string) ([]string, error) {
	if target == "" {
		target = s.cfg.Export.Target
	}

	ex, err := storage.Open(ctx, target)
	if err != nil {
		return nil, err
	}

	written, err := b.Export(ctx, ex)
	return written, errors.Join(err, ex.Close())
}

// ExportSubdir writes the board to sub inside the configured export target.
// sub comes from remote callers and may not leave the target.
func (s *Service) ExportSubdir(ctx context.Context, b *board.Board, sub string) ([]string, error) {
	target, err := storage.Within(s.cfg.Export.Target, sub)
	if err != nil {
		return nil, err
	}
	return s.Export(ctx, b, target)
}

func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

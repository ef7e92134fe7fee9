package app

import (
	"context"
	"fmt"
	"log/slog"

	"storyboard/internal/credentials"
	"storyboard/internal/imagegen"
	"storyboard/internal/imagegen/dalle"
	"storyboard/internal/imagegen/imagen"
	"storyboard/internal/llm"
	"storyboard/internal/llm/gemini"
	"storyboard/internal/llm/groq"
	"storyboard/internal/llm/openai"
	"storyboard/pkg/config"
	"storyboard/pkg/httputil"
	"storyboard/pkg/prompts"
)

var keyLabels = map[string]string{
	config.ProviderGemini: "Gemini API Key",
	config.ProviderImagen: "Gemini API Key",
	config.ProviderGroq:   "Groq API Key",
	config.ProviderOpenAI: "OpenAI API Key",
	config.ProviderDalle:  "OpenAI API Key",
}

func BuildService(ctx context.Context, cfg *config.Config) (*Service, error) {
	p, err := prompts.Load()
	if err != nil {
		return nil, err
	}

	planner, err := buildPlanner(cfg, p)
	if err != nil {
		return nil, err
	}

	renderer, err := buildRenderer(cfg)
	if err != nil {
		return nil, err
	}

	preset, closers := buildPreset(ctx, cfg)

	return NewService(ServiceOptions{
		Config:   cfg,
		Planner:  planner,
		Renderer: renderer,
		Preset:   preset,
		Closers:  closers,
	}), nil
}

func buildPlanner(cfg *config.Config, p *prompts.Prompts) (llm.Factory, error) {
	httpClient := httputil.NewClient(cfg.Planner.Provider)

	switch cfg.Planner.Provider {
	case config.ProviderGemini:
		return gemini.NewFactory(p, gemini.Options{Model: cfg.Planner.Model, HTTPClient: httpClient}), nil
	case config.ProviderGroq:
		return groq.NewFactory(p, groq.Options{Model: cfg.Planner.Model, HTTPClient: httpClient}), nil
	case config.ProviderOpenAI:
		return openai.NewFactory(p, openai.Options{
			Model:      cfg.Planner.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: httpClient,
		}), nil
	}
	return nil, fmt.Errorf("unknown planner provider %q", cfg.Planner.Provider)
}

func buildRenderer(cfg *config.Config) (imagegen.Factory, error) {
	httpClient := httputil.NewClient(cfg.Renderer.Provider)

	switch cfg.Renderer.Provider {
	case config.ProviderImagen:
		return imagen.NewFactory(imagen.Options{Model: cfg.Renderer.Model, HTTPClient: httpClient}), nil
	case config.ProviderDalle:
		return dalle.NewFactory(dalle.Options{
			Model:      cfg.Renderer.Model,
			BaseURL:    cfg.OpenAI.BaseURL,
			HTTPClient: httpClient,
		}), nil
	}
	return nil, fmt.Errorf("unknown renderer provider %q", cfg.Renderer.Provider)
}

// buildPreset chains the environment with Secret Manager when a project is
// configured. A Secret Manager client that cannot be created is skipped.
func buildPreset(ctx context.Context, cfg *config.Config) (credentials.Source, []func() error) {
	chain := credentials.Chain{credentials.EnvSource{
		credentials.Text:  cfg.TextKeyEnv(),
		credentials.Image: cfg.ImageKeyEnv(),
	}}

	var closers []func() error
	if cfg.Secrets.Project != "" {
		sm, err := credentials.NewSecretManagerSource(ctx, cfg.Secrets.Project, map[credentials.Key]string{
			credentials.Text:  cfg.Secrets.TextName,
			credentials.Image: cfg.Secrets.ImageName,
		})
		if err != nil {
			slog.Warn("Secret Manager unavailable, using environment only", "project", cfg.Secrets.Project, "error", err)
		} else {
			chain = append(chain, sm)
			closers = append(closers, sm.Close)
		}
	}

	return credentials.NewCached(chain), closers
}

// KeyLabels returns the prompt titles for the two keys of cfg.
func KeyLabels(cfg *config.Config) map[credentials.Key]string {
	return map[credentials.Key]string{
		credentials.Text:  keyLabels[cfg.Planner.Provider],
		credentials.Image: keyLabels[cfg.Renderer.Provider],
	}
}

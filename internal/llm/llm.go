package llm

import (
	"context"
	"errors"

	"storyboard/internal/scene"
)

var (
	ErrNoResponse    = errors.New("no response")
	ErrEmptyResponse = errors.New("empty response")
)

// Planner segments a script into a scene set with one text-generation call.
type Planner interface {
	PlanScenes(ctx context.Context, script string) (*scene.Set, error)
}

// Factory builds a planner authorized with apiKey.
type Factory func(ctx context.Context, apiKey string) (Planner, error)

// Package credentials resolves the two provider API keys: one for the
// text-generation planner and one for the image renderer. Keys come from a
// preset store first and from an interactive masked prompt otherwise.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Key string

const (
	Text  Key = "text"
	Image Key = "image"
)

var ErrMissing = errors.New("credential missing")

// Source looks up one credential. Implementations return an error wrapping
// ErrMissing when they do not hold the key.
type Source interface {
	Lookup(ctx context.Context, key Key) (string, error)
}

func missing(key Key) error {
	return fmt.Errorf("%s API key: %w", key, ErrMissing)
}

// Chain tries each source in order. A source failing with anything other
// than ErrMissing is logged and skipped so a broken store never hides the
// interactive fallback.
type Chain []Source

func (c Chain) Lookup(ctx context.Context, key Key) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		value, err := src.Lookup(ctx, key)
		if err == nil && value != "" {
			return value, nil
		}
		if err != nil && !errors.Is(err, ErrMissing) {
			slog.Warn("Credential source failed", "key", key, "source", fmt.Sprintf("%T", src), "error", err)
		}
	}
	return "", missing(key)
}

// EnvSource reads keys from environment variables.
type EnvSource map[Key]string

func (e EnvSource) Lookup(_ context.Context, key Key) (string, error) {
	name, ok := e[key]
	if !ok {
		return "", missing(key)
	}
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", missing(key)
	}
	return value, nil
}

// Static holds keys handed over at runtime, such as a password field on the
// web page. Safe for concurrent use.
type Static struct {
	mu     sync.RWMutex
	values map[Key]string
}

func NewStatic() *Static {
	return &Static{values: make(map[Key]string)}
}

func (s *Static) Set(key Key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

func (s *Static) Has(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key] != ""
}

func (s *Static) Lookup(_ context.Context, key Key) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if value := s.values[key]; value != "" {
		return value, nil
	}
	return "", missing(key)
}

// Cached remembers the first successful answer per key for the lifetime of
// the session, so the user is prompted at most once.
type Cached struct {
	src  Source
	once *Static
}

func NewCached(src Source) *Cached {
	return &Cached{src: src, once: NewStatic()}
}

func (c *Cached) Lookup(ctx context.Context, key Key) (string, error) {
	if value, err := c.once.Lookup(ctx, key); err == nil {
		return value, nil
	}
	value, err := c.src.Lookup(ctx, key)
	if err != nil {
		return "", err
	}
	c.once.Set(key, value)
	return value, nil
}

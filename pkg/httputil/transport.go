package httputil

import (
	"log/slog"
	"net/http"
	"time"
)

// LoggingTransport logs every provider request at debug level. It never
// retries and never logs headers or bodies, so API keys stay out of the log.
type LoggingTransport struct {
	Provider string
	Base     http.RoundTripper
	Logger   *slog.Logger
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start)

	if err != nil {
		logger.Debug("Provider request failed",
			"provider", t.Provider,
			"method", req.Method,
			"path", req.URL.Path,
			"elapsed", elapsed,
			"error", err)
		return nil, err
	}

	logger.Debug("Provider request",
		"provider", t.Provider,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"elapsed", elapsed)
	return resp, nil
}

// NewClient returns an HTTP client whose calls are logged under provider.
func NewClient(provider string) *http.Client {
	return &http.Client{Transport: &LoggingTransport{Provider: provider}}
}

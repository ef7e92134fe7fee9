// Package storage writes exported storyboard files to a local directory or a
// Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Exporter saves one named file and returns where it was written.
type Exporter interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Close() error
}

const gcsScheme = "gs://"

var ErrInvalidSubdir = errors.New("invalid export directory")

// CleanSubdir normalizes a relative directory name given by a remote caller.
// Absolute paths, URLs and paths that climb out with ".." are rejected. An
// empty name returns "".
func CleanSubdir(sub string) (string, error) {
	sub = strings.TrimSpace(sub)
	if sub == "" {
		return "", nil
	}
	if strings.Contains(sub, "://") || strings.ContainsRune(sub, '\\') ||
		filepath.IsAbs(sub) || strings.HasPrefix(sub, "/") {
		return "", fmt.Errorf("%w %q", ErrInvalidSubdir, sub)
	}

	clean := path.Clean(sub)
	if clean == "." {
		return "", nil
	}
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w %q", ErrInvalidSubdir, sub)
	}
	return clean, nil
}

// Within returns the target for sub inside base, which is a local directory
// or a gs:// URL.
func Within(base, sub string) (string, error) {
	clean, err := CleanSubdir(sub)
	if err != nil || clean == "" {
		return base, err
	}
	if strings.HasPrefix(base, gcsScheme) {
		return strings.TrimSuffix(base, "/") + "/" + clean, nil
	}
	return filepath.Join(base, filepath.FromSlash(clean)), nil
}

// Open returns the exporter for target: a gs://bucket/prefix URL or a local
// directory path.
func Open(ctx context.Context, target string) (Exporter, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("export target is empty")
	}

	if strings.HasPrefix(target, gcsScheme) {
		bucket, prefix, err := parseGCSURL(target)
		if err != nil {
			return nil, err
		}
		return NewGCSStorage(ctx, bucket, prefix)
	}

	return NewLocalStorage(target), nil
}

func parseGCSURL(target string) (bucket, prefix string, err error) {
	rest := strings.TrimPrefix(target, gcsScheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid gcs target %q: missing bucket", target)
	}
	return bucket, strings.Trim(prefix, "/"), nil
}

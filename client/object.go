package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore persists a published artifact and returns its durable URI.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// DirObjectStore writes objects under a base directory, mirroring the key as
// a relative path, and returns file:// URIs.
type DirObjectStore struct {
	BaseDir string
}

func NewDirObjectStore(baseDir string) *DirObjectStore {
	return &DirObjectStore{BaseDir: baseDir}
}

func (s *DirObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean(strings.TrimPrefix(key, "/"))
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("object key %q escapes base directory", key)
	}

	path := filepath.Join(s.BaseDir, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("writing object %s: %w", key, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving object path: %w", err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

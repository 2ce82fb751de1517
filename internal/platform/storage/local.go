// Package storage persists generated artifacts on local disk. Every
// task writes into its own directory, so concurrent tasks never
// contend on a path.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"
)

// LocalStore writes artifacts under a root directory and returns the
// public URL paths they are served from.
type LocalStore struct {
	root       string
	publicBase string
	httpc      *http.Client
	logger     *slog.Logger
}

// NewLocalStore creates the store, ensuring the root directory exists.
// publicBase is the URL prefix the router serves the root under.
func NewLocalStore(root, publicBase string, logger *slog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage root cannot be empty")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}

	return &LocalStore{
		root:       root,
		publicBase: publicBase,
		httpc:      &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}, nil
}

// Root returns the filesystem root, for serving artifacts read-only.
func (s *LocalStore) Root() string {
	return s.root
}

// Save writes the reader's content to the task's directory and returns
// the artifact's public URL path.
func (s *LocalStore) Save(taskID, filename string, r io.Reader) (string, error) {
	dir := filepath.Join(s.root, "generated", taskID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	dst := filepath.Join(dir, filename)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create artifact file: %w", err)
	}
	defer func() { _ = f.Close() }()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	s.logger.Debug("artifact written", "path", dst, "bytes", n)
	return path.Join(s.publicBase, "generated", taskID, filename), nil
}

// SaveFromURL downloads the provider output and stores it in the
// task's directory, returning the artifact's public URL path.
func (s *LocalStore) SaveFromURL(ctx context.Context, taskID, filename, srcURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid artifact URL: %w", err)
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download artifact: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("artifact download returned status %d", resp.StatusCode)
	}

	return s.Save(taskID, filename, resp.Body)
}

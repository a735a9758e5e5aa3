// Package fallback persists the fallback paywall bundle where the SDK expects it.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/viant/afs"
	"github.com/viant/afs/url"
	"github.com/viant/paywall/config"
)

const (
	// Dir is the bundle directory under the base URL
	Dir = "helium_local"
	// FileName is the bundle file name
	FileName = "helium-fallback.json"
)

var (
	ErrSourceNotFound = errors.New("fallback: bundle source not found")
	ErrInvalidBundle  = errors.New("fallback: bundle is not valid JSON")
)

// Store writes the bundle to <baseURL>/helium_local/helium-fallback.json, last writer wins
type Store struct {
	fs      afs.Service
	baseURL string
}

// URL returns the bundle location
func (s *Store) URL() string {
	return url.Join(s.baseURL, Dir, FileName)
}

// Save persists the bundle named by cfg and returns the stored file name, empty when cfg has none
func (s *Store) Save(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg == nil || !cfg.HasFallbackBundle() {
		return "", nil
	}
	var data []byte
	if cfg.FallbackBundleURL != "" {
		ok, err := s.fs.Exists(ctx, cfg.FallbackBundleURL)
		if err != nil {
			return "", fmt.Errorf("failed to check fallback bundle %v: %w", cfg.FallbackBundleURL, err)
		}
		if !ok {
			return "", fmt.Errorf("%w: %v", ErrSourceNotFound, cfg.FallbackBundleURL)
		}
		if data, err = s.fs.DownloadWithURL(ctx, cfg.FallbackBundleURL); err != nil {
			return "", fmt.Errorf("failed to read fallback bundle %v: %w", cfg.FallbackBundleURL, err)
		}
	} else {
		data = []byte(cfg.FallbackBundle)
	}
	if !json.Valid(data) {
		return "", ErrInvalidBundle
	}
	if err := s.fs.Upload(ctx, s.URL(), os.FileMode(0o644), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to write fallback bundle %v: %w", s.URL(), err)
	}
	return FileName, nil
}

// Load reads the stored bundle
func (s *Store) Load(ctx context.Context) ([]byte, error) {
	return s.fs.DownloadWithURL(ctx, s.URL())
}

// Remove deletes the stored bundle, a missing bundle is not an error
func (s *Store) Remove(ctx context.Context) error {
	ok, err := s.fs.Exists(ctx, s.URL())
	if err != nil || !ok {
		return err
	}
	return s.fs.Delete(ctx, s.URL())
}

// New creates a store rooted at baseURL, any afs URL or local path
func New(baseURL string) *Store {
	return &Store{fs: afs.New(), baseURL: baseURL}
}

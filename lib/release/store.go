// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store manages the release directory tree under a deployment prefix.
// The zero value is not usable; construct with New.
type Store struct {
	// prefix is the deployment root (e.g., /opt/alona).
	prefix string

	// entryPoint is the service executable path relative to a release
	// directory (e.g., "bin/alona-core").
	entryPoint string

	logger *slog.Logger
}

// New creates a Store rooted at prefix. entryPoint is the relative
// path of the executable every valid release must contain.
func New(prefix, entryPoint string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		prefix:     prefix,
		entryPoint: entryPoint,
		logger:     logger,
	}
}

// ReleasesDir returns the directory holding one subdirectory per
// deployed version.
func (s *Store) ReleasesDir() string {
	return filepath.Join(s.prefix, "releases")
}

// CurrentLink returns the path of the current pointer symlink.
func (s *Store) CurrentLink() string {
	return filepath.Join(s.prefix, "current")
}

// PreviousLink returns the path of the previous pointer symlink.
func (s *Store) PreviousLink() string {
	return filepath.Join(s.prefix, "previous")
}

// ReleaseDir returns the directory a release with the given version
// label occupies (whether or not it exists).
func (s *Store) ReleaseDir(version string) string {
	return filepath.Join(s.ReleasesDir(), version)
}

// EntryPointPath returns the absolute path of the entry-point
// executable inside the given release directory.
func (s *Store) EntryPointPath(releaseDir string) string {
	return filepath.Join(releaseDir, s.entryPoint)
}

// Has reports whether a release with the given version label exists in
// the store.
func (s *Store) Has(version string) bool {
	info, err := os.Stat(s.ReleaseDir(version))
	return err == nil && info.IsDir()
}

// Release describes one entry in the release store.
type Release struct {
	// Version is the directory name, which is the caller-supplied
	// version label.
	Version string `json:"version"`

	// Path is the absolute release directory.
	Path string `json:"path"`

	// DeployedAt is the directory's modification time, which for an
	// immutable release is the time extraction completed.
	DeployedAt time.Time `json:"deployed_at"`
}

// List returns all releases in the store, newest first. A missing
// releases directory is an empty store, not an error.
func (s *Store) List() ([]Release, error) {
	entries, err := os.ReadDir(s.ReleasesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading release store %s: %w", s.ReleasesDir(), err)
	}

	var releases []Release
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		releases = append(releases, Release{
			Version:    entry.Name(),
			Path:       filepath.Join(s.ReleasesDir(), entry.Name()),
			DeployedAt: info.ModTime(),
		})
	}

	sort.Slice(releases, func(i, j int) bool {
		return releases[i].DeployedAt.After(releases[j].DeployedAt)
	})
	return releases, nil
}

// validateVersion rejects version labels that would escape the store
// or collide with the pointer files. Labels are opaque strings chosen
// by the operator, but they become directory names.
func validateVersion(version string) error {
	if version == "" {
		return fmt.Errorf("version label must not be empty")
	}
	if strings.ContainsAny(version, "/\x00") || version == "." || version == ".." {
		return fmt.Errorf("version label %q must be a single path component", version)
	}
	return nil
}

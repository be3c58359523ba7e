// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/alona-iot/infra/lib/digest"
)

// Deployment describes a successfully deployed release.
type Deployment struct {
	// Version is the deployed version label.
	Version string `json:"version"`

	// Path is the release directory now pointed to by current.
	Path string `json:"path"`

	// ArtifactDigest is the BLAKE3 digest of the artifact archive as
	// supplied by the operator.
	ArtifactDigest string `json:"artifact_digest"`

	// EntryPointDigest is the BLAKE3 digest of the installed
	// entry-point executable. Recorded so a later status check can
	// detect tampering.
	EntryPointDigest string `json:"entry_point_digest"`
}

// Deploy extracts the artifact at artifactPath into a fresh release
// directory named version, validates it, write-protects it, and
// switches the current pointer to it.
//
// Failures before the switch never touch the pointers. A failed
// extraction or validation leaves the partial release directory on
// disk for inspection. Nothing cleans it up, so a failed
// deploy on a hard-to-reach gateway can be diagnosed afterwards.
func (s *Store) Deploy(artifactPath, version string) (*Deployment, error) {
	if err := validateVersion(version); err != nil {
		return nil, err
	}

	info, err := os.Stat(artifactPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, artifactPath)
	}

	if s.Has(version) {
		return nil, fmt.Errorf("%w: %s", ErrVersionAlreadyExists, version)
	}

	artifactDigest, err := digest.File(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("hashing artifact %s: %w", artifactPath, err)
	}

	releaseDir := s.ReleaseDir(version)
	if err := os.MkdirAll(releaseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating release directory %s: %w", releaseDir, err)
	}

	s.logger.Info("extracting release",
		"version", version,
		"artifact", artifactPath,
		"artifact_digest", artifactDigest,
	)

	if err := extractArchive(artifactPath, releaseDir); err != nil {
		return nil, fmt.Errorf("extracting %s into %s: %w", artifactPath, releaseDir, err)
	}

	if err := flattenNestedRoot(releaseDir, s.entryPoint); err != nil {
		return nil, err
	}

	entryPath := s.EntryPointPath(releaseDir)
	entryInfo, err := os.Stat(entryPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s missing from extracted release (directory left at %s for inspection)",
			ErrValidationFailed, s.entryPoint, releaseDir)
	}
	if entryInfo.Mode().Perm()&0111 == 0 {
		return nil, fmt.Errorf("%w: %s is not executable (directory left at %s for inspection)",
			ErrValidationFailed, s.entryPoint, releaseDir)
	}

	entryDigest, err := digest.File(entryPath)
	if err != nil {
		return nil, fmt.Errorf("hashing entry point %s: %w", entryPath, err)
	}

	if err := markReadOnly(releaseDir); err != nil {
		return nil, fmt.Errorf("write-protecting release %s: %w", releaseDir, err)
	}

	if err := s.Switch(version); err != nil {
		return nil, err
	}

	s.logger.Info("release deployed",
		"version", version,
		"path", releaseDir,
		"entry_point_digest", entryDigest,
	)

	return &Deployment{
		Version:          version,
		Path:             releaseDir,
		ArtifactDigest:   artifactDigest,
		EntryPointDigest: entryDigest,
	}, nil
}

// Switch repoints current to the release named version. The prior
// current target becomes the new previous. Previous is updated first:
// a crash between the two steps leaves previous one generation stale
// at worst, never dangling, and never loses rollback capability.
func (s *Store) Switch(version string) error {
	if err := validateVersion(version); err != nil {
		return err
	}
	if !s.Has(version) {
		return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
	}

	oldTarget, err := os.Readlink(s.CurrentLink())
	switch {
	case err == nil:
		if err := replaceSymlink(oldTarget, s.PreviousLink()); err != nil {
			return err
		}
	case os.IsNotExist(err):
		// First deploy: no previous to record.
	default:
		return fmt.Errorf("reading current pointer %s: %w", s.CurrentLink(), err)
	}

	newTarget := s.ReleaseDir(version)
	if err := replaceSymlink(newTarget, s.CurrentLink()); err != nil {
		return err
	}

	s.logger.Info("current pointer switched",
		"version", version,
		"target", newTarget,
	)
	return nil
}

// Rollback atomically repoints current to the target of previous.
// Previous itself is not modified, so a repeated rollback re-applies
// the same target rather than ping-ponging forward. Returns the
// version rolled back to.
func (s *Store) Rollback() (string, error) {
	target, err := os.Readlink(s.PreviousLink())
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: previous pointer not set", ErrNoPreviousRelease)
		}
		return "", fmt.Errorf("reading previous pointer %s: %w", s.PreviousLink(), err)
	}

	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: target %s no longer exists", ErrNoPreviousRelease, target)
	}

	if err := replaceSymlink(target, s.CurrentLink()); err != nil {
		return "", err
	}

	version := filepath.Base(target)
	s.logger.Info("rolled back",
		"version", version,
		"target", target,
	)
	return version, nil
}

// Target is a resolved pointer: a version label and the release
// directory it names.
type Target struct {
	Version string `json:"version"`
	Path    string `json:"path"`
}

// Status reports the resolved current and previous pointers (nil when
// unset) and the contents of the release store.
type Status struct {
	Current  *Target   `json:"current"`
	Previous *Target   `json:"previous"`
	Releases []Release `json:"releases"`
}

// Status resolves both pointers and lists the store.
func (s *Store) Status() (*Status, error) {
	releases, err := s.List()
	if err != nil {
		return nil, err
	}

	status := &Status{Releases: releases}
	if target, ok := resolvePointer(s.CurrentLink()); ok {
		status.Current = target
	}
	if target, ok := resolvePointer(s.PreviousLink()); ok {
		status.Previous = target
	}
	return status, nil
}

// resolvePointer reads a pointer symlink. Unset (missing) pointers
// return ok=false. A pointer whose target directory was removed
// out-of-band still resolves: status reporting should surface that
// rather than hide it.
func resolvePointer(link string) (*Target, bool) {
	target, err := os.Readlink(link)
	if err != nil {
		return nil, false
	}
	return &Target{
		Version: filepath.Base(target),
		Path:    target,
	}, true
}

// replaceSymlink atomically replaces link with a symlink to target.
// The new symlink is written next to the destination and swapped into
// place with a single rename, so concurrent readers always observe
// either the old or the new value.
func replaceSymlink(target, link string) error {
	staging := link + ".next"

	// Remove any staging leftover from a crashed switch.
	if err := os.Remove(staging); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale staging link %s: %w", staging, err)
	}
	if err := os.Symlink(target, staging); err != nil {
		return fmt.Errorf("creating symlink %s -> %s: %w", staging, target, err)
	}
	if err := os.Rename(staging, link); err != nil {
		os.Remove(staging)
		return fmt.Errorf("activating symlink %s -> %s: %w", link, target, err)
	}
	return nil
}

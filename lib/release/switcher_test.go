// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"archive/tar"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// tarEntry is one file in a test artifact.
type tarEntry struct {
	name string
	body string
	mode int64
}

// writeArtifact builds a tar.gz artifact at path containing the given
// entries. Directories are created implicitly by the tar reader.
func writeArtifact(t *testing.T, path string, entries []tarEntry) {
	t.Helper()

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating artifact %s: %v", path, err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, entry := range entries {
		mode := entry.mode
		if mode == 0 {
			mode = 0644
		}
		header := &tar.Header{
			Name: entry.name,
			Mode: mode,
			Size: int64(len(entry.body)),
		}
		if err := tarWriter.WriteHeader(header); err != nil {
			t.Fatalf("writing tar header %s: %v", entry.name, err)
		}
		if _, err := tarWriter.Write([]byte(entry.body)); err != nil {
			t.Fatalf("writing tar body %s: %v", entry.name, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gzipWriter.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
}

// validArtifact builds an artifact with an executable entry point at
// bin/core, the shape a real release pipeline produces.
func validArtifact(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	writeArtifact(t, path, []tarEntry{
		{name: "bin/core", body: "#!/bin/sh\necho " + name + "\n", mode: 0755},
		{name: "share/rules.yaml", body: "rules: []\n"},
	})
	return path
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	prefix := t.TempDir()
	// Deployed releases are write-protected; give the permissions back
	// before the test framework removes the directory.
	t.Cleanup(func() {
		_ = restoreWritePermission(prefix)
	})
	return New(prefix, "bin/core", nil)
}

func TestDeploy_FirstRelease(t *testing.T) {
	store := newTestStore(t)
	artifact := validArtifact(t, t.TempDir(), "core-1.0.0.tar.gz")

	deployment, err := store.Deploy(artifact, "1.0.0")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if deployment.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", deployment.Version)
	}
	if deployment.ArtifactDigest == "" || deployment.EntryPointDigest == "" {
		t.Error("expected digests to be recorded")
	}

	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "1.0.0" {
		t.Fatalf("expected current=1.0.0, got %+v", status.Current)
	}
	if status.Previous != nil {
		t.Errorf("expected previous unset after first deploy, got %+v", status.Previous)
	}

	// Current resolves to a directory containing the executable entry
	// point.
	entryPath := filepath.Join(status.Current.Path, "bin", "core")
	info, err := os.Stat(entryPath)
	if err != nil {
		t.Fatalf("entry point missing under current: %v", err)
	}
	if info.Mode().Perm()&0111 == 0 {
		t.Error("entry point is not executable")
	}
}

func TestDeploy_MissingArtifact(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Deploy(filepath.Join(t.TempDir(), "absent.tar.gz"), "1.0.0")
	if !errors.Is(err, ErrArtifactNotFound) {
		t.Fatalf("expected ErrArtifactNotFound, got %v", err)
	}
	if store.Has("1.0.0") {
		t.Error("store should not contain a release after a failed deploy")
	}
}

func TestDeploy_DuplicateVersion(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	first := validArtifact(t, dir, "core-1.0.0.tar.gz")
	if _, err := store.Deploy(first, "1.0.0"); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	originalEntry, err := os.ReadFile(store.EntryPointPath(store.ReleaseDir("1.0.0")))
	if err != nil {
		t.Fatalf("reading deployed entry point: %v", err)
	}

	second := validArtifact(t, dir, "core-other.tar.gz")
	_, err = store.Deploy(second, "1.0.0")
	if !errors.Is(err, ErrVersionAlreadyExists) {
		t.Fatalf("expected ErrVersionAlreadyExists, got %v", err)
	}

	// The existing release and the pointers are untouched.
	currentEntry, err := os.ReadFile(store.EntryPointPath(store.ReleaseDir("1.0.0")))
	if err != nil {
		t.Fatalf("reading entry point after refused deploy: %v", err)
	}
	if string(currentEntry) != string(originalEntry) {
		t.Error("refused deploy modified the existing release")
	}

	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "1.0.0" {
		t.Errorf("expected current unchanged at 1.0.0, got %+v", status.Current)
	}
}

func TestDeploy_ValidationFailure(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	good := validArtifact(t, dir, "core-1.0.0.tar.gz")
	if _, err := store.Deploy(good, "1.0.0"); err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	// An artifact with no entry point at all.
	broken := filepath.Join(dir, "broken.tar.gz")
	writeArtifact(t, broken, []tarEntry{
		{name: "README.md", body: "not a release\n"},
	})

	_, err := store.Deploy(broken, "2.0.0")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}

	// The partial directory stays on disk for inspection.
	if _, err := os.Stat(filepath.Join(store.ReleaseDir("2.0.0"), "README.md")); err != nil {
		t.Errorf("expected partial release directory to remain: %v", err)
	}

	// Pointers are unchanged.
	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "1.0.0" {
		t.Errorf("expected current unchanged at 1.0.0, got %+v", status.Current)
	}
	if status.Previous != nil {
		t.Errorf("expected previous unchanged (unset), got %+v", status.Previous)
	}
}

func TestDeploy_NonExecutableEntryPoint(t *testing.T) {
	store := newTestStore(t)

	artifact := filepath.Join(t.TempDir(), "core.tar.gz")
	writeArtifact(t, artifact, []tarEntry{
		{name: "bin/core", body: "data, not a program", mode: 0644},
	})

	_, err := store.Deploy(artifact, "1.0.0")
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("expected ErrValidationFailed, got %v", err)
	}
}

func TestDeploy_SequentialThenRollback(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	if _, err := store.Deploy(validArtifact(t, dir, "core-1.tar.gz"), "v1"); err != nil {
		t.Fatalf("Deploy v1: %v", err)
	}
	if _, err := store.Deploy(validArtifact(t, dir, "core-2.tar.gz"), "v2"); err != nil {
		t.Fatalf("Deploy v2: %v", err)
	}

	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "v2" {
		t.Fatalf("expected current=v2, got %+v", status.Current)
	}
	if status.Previous == nil || status.Previous.Version != "v1" {
		t.Fatalf("expected previous=v1, got %+v", status.Previous)
	}

	// Rollback: current returns to v1, previous stays v1.
	version, err := store.Rollback()
	if err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if version != "v1" {
		t.Errorf("expected rollback to v1, got %s", version)
	}

	status, err = store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "v1" {
		t.Errorf("expected current=v1 after rollback, got %+v", status.Current)
	}
	if status.Previous == nil || status.Previous.Version != "v1" {
		t.Errorf("expected previous to remain v1, got %+v", status.Previous)
	}

	// A second rollback is a no-op re-applying the same target, not a
	// redo forward.
	version, err = store.Rollback()
	if err != nil {
		t.Fatalf("second Rollback: %v", err)
	}
	if version != "v1" {
		t.Errorf("expected idempotent rollback to v1, got %s", version)
	}
	status, err = store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "v1" {
		t.Errorf("expected current to stay v1, got %+v", status.Current)
	}
}

func TestRollback_NoPrevious(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Rollback()
	if !errors.Is(err, ErrNoPreviousRelease) {
		t.Fatalf("expected ErrNoPreviousRelease, got %v", err)
	}

	// With one deploy, previous is still unset.
	if _, err := store.Deploy(validArtifact(t, t.TempDir(), "core.tar.gz"), "v1"); err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	_, err = store.Rollback()
	if !errors.Is(err, ErrNoPreviousRelease) {
		t.Fatalf("expected ErrNoPreviousRelease after single deploy, got %v", err)
	}

	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "v1" {
		t.Errorf("failed rollback must leave current unchanged, got %+v", status.Current)
	}
}

func TestRollback_TargetRemovedOutOfBand(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	if _, err := store.Deploy(validArtifact(t, dir, "core-1.tar.gz"), "v1"); err != nil {
		t.Fatalf("Deploy v1: %v", err)
	}
	if _, err := store.Deploy(validArtifact(t, dir, "core-2.tar.gz"), "v2"); err != nil {
		t.Fatalf("Deploy v2: %v", err)
	}

	// Simulate out-of-band cleanup removing the previous release.
	// Write permission must come back first; releases are read-only.
	v1Dir := store.ReleaseDir("v1")
	if err := restoreWritePermission(v1Dir); err != nil {
		t.Fatalf("restoring write permission: %v", err)
	}
	if err := os.RemoveAll(v1Dir); err != nil {
		t.Fatalf("removing v1: %v", err)
	}

	_, err := store.Rollback()
	if !errors.Is(err, ErrNoPreviousRelease) {
		t.Fatalf("expected ErrNoPreviousRelease for removed target, got %v", err)
	}
}

func TestSwitch_VersionNotFound(t *testing.T) {
	store := newTestStore(t)

	err := store.Switch("9.9.9")
	if !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestSwitch_StandaloneReactivation(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	if _, err := store.Deploy(validArtifact(t, dir, "core-1.tar.gz"), "v1"); err != nil {
		t.Fatalf("Deploy v1: %v", err)
	}
	if _, err := store.Deploy(validArtifact(t, dir, "core-2.tar.gz"), "v2"); err != nil {
		t.Fatalf("Deploy v2: %v", err)
	}

	// Switch back to v1 without redeploying.
	if err := store.Switch("v1"); err != nil {
		t.Fatalf("Switch: %v", err)
	}

	status, err := store.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Current == nil || status.Current.Version != "v1" {
		t.Errorf("expected current=v1, got %+v", status.Current)
	}
	if status.Previous == nil || status.Previous.Version != "v2" {
		t.Errorf("expected previous=v2, got %+v", status.Previous)
	}
}

func TestDeploy_RejectsBadVersionLabels(t *testing.T) {
	store := newTestStore(t)
	artifact := validArtifact(t, t.TempDir(), "core.tar.gz")

	for _, version := range []string{"", "a/b", "..", "."} {
		if _, err := store.Deploy(artifact, version); err == nil {
			t.Errorf("expected error for version label %q", version)
		}
	}
}

func TestDeploy_ReleaseIsWriteProtected(t *testing.T) {
	store := newTestStore(t)

	deployment, err := store.Deploy(validArtifact(t, t.TempDir(), "core.tar.gz"), "v1")
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}

	entryInfo, err := os.Stat(store.EntryPointPath(deployment.Path))
	if err != nil {
		t.Fatalf("stat entry point: %v", err)
	}
	if entryInfo.Mode().Perm()&0222 != 0 {
		t.Errorf("entry point should be write-protected, mode %v", entryInfo.Mode())
	}
	if entryInfo.Mode().Perm()&0111 == 0 {
		t.Errorf("entry point should stay executable, mode %v", entryInfo.Mode())
	}

	dirInfo, err := os.Stat(deployment.Path)
	if err != nil {
		t.Fatalf("stat release dir: %v", err)
	}
	if dirInfo.Mode().Perm()&0222 != 0 {
		t.Errorf("release directory should be write-protected, mode %v", dirInfo.Mode())
	}
}

// TestSwitch_ConcurrentReaders drives repeated switches between two
// releases while readers continuously resolve the current pointer.
// Every sample must be one of the two valid release directories; a
// reader must never observe a missing or half-written pointer.
func TestSwitch_ConcurrentReaders(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	if _, err := store.Deploy(validArtifact(t, dir, "core-1.tar.gz"), "v1"); err != nil {
		t.Fatalf("Deploy v1: %v", err)
	}
	if _, err := store.Deploy(validArtifact(t, dir, "core-2.tar.gz"), "v2"); err != nil {
		t.Fatalf("Deploy v2: %v", err)
	}

	valid := map[string]bool{
		store.ReleaseDir("v1"): true,
		store.ReleaseDir("v2"): true,
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var mu sync.Mutex
	var bad []string

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				target, err := os.Readlink(store.CurrentLink())
				if err != nil || !valid[target] {
					mu.Lock()
					bad = append(bad, target)
					mu.Unlock()
					return
				}
			}
		}()
	}

	versions := []string{"v1", "v2"}
	for i := 0; i < 200; i++ {
		if err := store.Switch(versions[i%2]); err != nil {
			t.Fatalf("Switch iteration %d: %v", i, err)
		}
	}
	close(stop)
	wg.Wait()

	if len(bad) > 0 {
		t.Fatalf("readers observed invalid pointer values: %v", bad)
	}
}

// restoreWritePermission re-enables owner write on a read-only release
// tree so tests can remove it.
func restoreWritePermission(root string) error {
	return filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type()&os.ModeSymlink != 0 {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		return os.Chmod(path, info.Mode().Perm()|0200)
	})
}

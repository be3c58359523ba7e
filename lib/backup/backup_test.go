// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"
)

// writeSourceTree builds a small state tree to back up: a data
// directory with a nested file and a config file.
func writeSourceTree(t *testing.T, root string) (dataDir, configFile string) {
	t.Helper()

	dataDir = filepath.Join(root, "data")
	if err := os.MkdirAll(filepath.Join(dataDir, "spool"), 0755); err != nil {
		t.Fatalf("creating data dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "telemetry.db"), []byte("sqlite bytes"), 0644); err != nil {
		t.Fatalf("writing data file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dataDir, "spool", "pending.json"), []byte("{}"), 0600); err != nil {
		t.Fatalf("writing spool file: %v", err)
	}

	configFile = filepath.Join(root, "config.yaml")
	if err := os.WriteFile(configFile, []byte("service:\n  unit: core\n"), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return dataDir, configFile
}

func TestCreateAndRestore_RoundTrip(t *testing.T) {
	sourceRoot := t.TempDir()
	dataDir, configFile := writeSourceTree(t, sourceRoot)

	snapshot, err := Create(Options{
		Include:   []string{dataDir, configFile},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if snapshot.Encrypted {
		t.Error("snapshot should not be marked encrypted")
	}
	if !strings.HasSuffix(snapshot.Name, ".tar.zst") {
		t.Errorf("unexpected snapshot name %s", snapshot.Name)
	}
	if snapshot.Size == 0 {
		t.Error("expected non-empty snapshot")
	}

	restoreRoot := t.TempDir()
	if err := Restore(snapshot.Path, restoreRoot, RestoreOptions{}); err != nil {
		t.Fatalf("Restore: %v", err)
	}

	// Entry names are absolute source paths minus the leading slash.
	restoredData := filepath.Join(restoreRoot, strings.TrimPrefix(dataDir, "/"))
	content, err := os.ReadFile(filepath.Join(restoredData, "telemetry.db"))
	if err != nil {
		t.Fatalf("reading restored file: %v", err)
	}
	if string(content) != "sqlite bytes" {
		t.Errorf("restored content mangled: %q", content)
	}
	if _, err := os.Stat(filepath.Join(restoredData, "spool", "pending.json")); err != nil {
		t.Errorf("nested file not restored: %v", err)
	}
	restoredConfig := filepath.Join(restoreRoot, strings.TrimPrefix(configFile, "/"))
	if _, err := os.Stat(restoredConfig); err != nil {
		t.Errorf("config file not restored: %v", err)
	}
}

func TestCreate_MissingSourceFails(t *testing.T) {
	_, err := Create(Options{
		Include:   []string{filepath.Join(t.TempDir(), "absent")},
		OutputDir: t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for missing backup source")
	}
}

func TestRestore_RefusesOverwriteWithoutForce(t *testing.T) {
	sourceRoot := t.TempDir()
	dataDir, _ := writeSourceTree(t, sourceRoot)

	snapshot, err := Create(Options{
		Include:   []string{dataDir},
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	restoreRoot := t.TempDir()
	if err := Restore(snapshot.Path, restoreRoot, RestoreOptions{}); err != nil {
		t.Fatalf("first Restore: %v", err)
	}

	err = Restore(snapshot.Path, restoreRoot, RestoreOptions{})
	if err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already-exists error, got %q", err.Error())
	}

	if err := Restore(snapshot.Path, restoreRoot, RestoreOptions{Force: true}); err != nil {
		t.Errorf("forced Restore: %v", err)
	}
}

func TestCreateAndRestore_Encrypted(t *testing.T) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generating age identity: %v", err)
	}
	identityFile := filepath.Join(t.TempDir(), "identity.txt")
	if err := os.WriteFile(identityFile, []byte(identity.String()+"\n"), 0600); err != nil {
		t.Fatalf("writing identity file: %v", err)
	}

	sourceRoot := t.TempDir()
	dataDir, _ := writeSourceTree(t, sourceRoot)

	snapshot, err := Create(Options{
		Include:    []string{dataDir},
		OutputDir:  t.TempDir(),
		Recipients: []string{identity.Recipient().String()},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !snapshot.Encrypted {
		t.Error("snapshot should be marked encrypted")
	}
	if !strings.HasSuffix(snapshot.Name, ".tar.zst.age") {
		t.Errorf("unexpected snapshot name %s", snapshot.Name)
	}

	// Restoring without the identity fails.
	err = Restore(snapshot.Path, t.TempDir(), RestoreOptions{})
	if err == nil {
		t.Fatal("expected error restoring encrypted snapshot without identity")
	}

	restoreRoot := t.TempDir()
	if err := Restore(snapshot.Path, restoreRoot, RestoreOptions{IdentityFile: identityFile}); err != nil {
		t.Fatalf("Restore with identity: %v", err)
	}
	restored := filepath.Join(restoreRoot, strings.TrimPrefix(dataDir, "/"), "telemetry.db")
	if _, err := os.Stat(restored); err != nil {
		t.Errorf("decrypted restore missing file: %v", err)
	}
}

func TestCreate_BadRecipientFails(t *testing.T) {
	sourceRoot := t.TempDir()
	dataDir, _ := writeSourceTree(t, sourceRoot)

	_, err := Create(Options{
		Include:    []string{dataDir},
		OutputDir:  t.TempDir(),
		Recipients: []string{"not-an-age-key"},
	})
	if err == nil {
		t.Fatal("expected error for malformed recipient key")
	}
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	// Empty and missing directories are empty lists.
	snapshots, err := List(dir)
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("expected no snapshots, got %d", len(snapshots))
	}
	if _, err := List(filepath.Join(dir, "absent")); err != nil {
		t.Errorf("List missing dir: %v", err)
	}

	sourceRoot := t.TempDir()
	dataDir, _ := writeSourceTree(t, sourceRoot)
	if _, err := Create(Options{Include: []string{dataDir}, OutputDir: dir}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Stray files and partials are ignored.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing stray file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, namePrefix+"x.tar.zst.partial"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing partial file: %v", err)
	}

	snapshots, err = List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snapshots))
	}
	if snapshots[0].Encrypted {
		t.Error("plain snapshot marked encrypted")
	}
}

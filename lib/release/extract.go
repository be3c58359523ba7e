// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// extractArchive unpacks the tar.gz artifact at artifactPath into
// destination, which must already exist and be empty. Entry names are
// sanitized: absolute paths, parent-directory traversal, and symlinks
// pointing outside the release directory are rejected, failing the
// whole extraction.
func extractArchive(artifactPath, destination string) error {
	artifact, err := os.Open(artifactPath)
	if err != nil {
		return fmt.Errorf("opening artifact %s: %w", artifactPath, err)
	}
	defer artifact.Close()

	gzipReader, err := gzip.NewReader(artifact)
	if err != nil {
		return fmt.Errorf("reading gzip stream from %s: %w", artifactPath, err)
	}
	defer gzipReader.Close()

	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading tar stream from %s: %w", artifactPath, err)
		}

		targetPath, err := sanitizeEntryName(destination, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", targetPath, err)
			}

		case tar.TypeReg:
			if err := writeFileEntry(targetPath, tarReader, header); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := writeSymlinkEntry(destination, targetPath, header.Linkname); err != nil {
				return err
			}

		default:
			// Hard links, devices, FIFOs have no business in a release
			// artifact.
			return fmt.Errorf("artifact entry %s: unsupported type %c", header.Name, header.Typeflag)
		}
	}
}

// sanitizeEntryName resolves an archive entry name against the
// destination directory and verifies it stays inside it.
func sanitizeEntryName(destination, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("artifact entry %q escapes the release directory", name)
	}
	return filepath.Join(destination, cleaned), nil
}

func writeFileEntry(targetPath string, content io.Reader, header *tar.Header) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", targetPath, err)
	}

	mode := fs.FileMode(header.Mode) & 0777
	if mode == 0 {
		mode = 0644
	}

	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", targetPath, err)
	}
	if _, err := io.Copy(file, content); err != nil {
		file.Close()
		return fmt.Errorf("writing %s: %w", targetPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", targetPath, err)
	}
	return nil
}

func writeSymlinkEntry(destination, targetPath, linkname string) error {
	// Relative link targets are resolved from the symlink's directory;
	// the result must stay inside the release.
	resolved := linkname
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(targetPath), linkname)
	}
	resolved = filepath.Clean(resolved)
	if !strings.HasPrefix(resolved, filepath.Clean(destination)+string(filepath.Separator)) {
		return fmt.Errorf("artifact symlink %s -> %s escapes the release directory", targetPath, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", targetPath, err)
	}
	if err := os.Symlink(linkname, targetPath); err != nil {
		return fmt.Errorf("creating symlink %s -> %s: %w", targetPath, linkname, err)
	}
	return nil
}

// flattenNestedRoot handles artifacts packaged with a single top-level
// directory (e.g., core-1.0.0/bin/core instead of bin/core). When the
// entry point is absent at the top level but present exactly one
// directory down, the nested directory's contents are promoted into
// releaseDir and the emptied directory is removed.
func flattenNestedRoot(releaseDir, entryPoint string) error {
	if _, err := os.Stat(filepath.Join(releaseDir, entryPoint)); err == nil {
		return nil // already flat
	}

	entries, err := os.ReadDir(releaseDir)
	if err != nil {
		return fmt.Errorf("reading release directory %s: %w", releaseDir, err)
	}
	if len(entries) != 1 || !entries[0].IsDir() {
		return nil // not the single-nested-directory shape; leave for validation
	}

	nested := filepath.Join(releaseDir, entries[0].Name())
	if _, err := os.Stat(filepath.Join(nested, entryPoint)); err != nil {
		return nil // entry point not one level down either
	}

	nestedEntries, err := os.ReadDir(nested)
	if err != nil {
		return fmt.Errorf("reading nested directory %s: %w", nested, err)
	}
	for _, entry := range nestedEntries {
		from := filepath.Join(nested, entry.Name())
		to := filepath.Join(releaseDir, entry.Name())
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("promoting %s -> %s: %w", from, to, err)
		}
	}
	if err := os.Remove(nested); err != nil {
		return fmt.Errorf("removing emptied directory %s: %w", nested, err)
	}
	return nil
}

// markReadOnly strips write permission from every file and directory in
// releaseDir and, when running as root, transfers ownership to root so
// the lower-privileged service account cannot tamper with its own
// binaries. Executable bits are preserved.
func markReadOnly(releaseDir string) error {
	asRoot := os.Geteuid() == 0

	return filepath.WalkDir(releaseDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type()&fs.ModeSymlink != 0 {
			return nil // chmod would follow the link
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", path, err)
		}
		if err := os.Chmod(path, info.Mode().Perm()&^0222); err != nil {
			return fmt.Errorf("write-protecting %s: %w", path, err)
		}
		if asRoot {
			if err := os.Chown(path, 0, 0); err != nil {
				return fmt.Errorf("transferring ownership of %s: %w", path, err)
			}
		}
		return nil
	})
}

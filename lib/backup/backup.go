// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package backup creates and restores snapshots of the gateway's
// state: the service data directory, broker configuration, and the
// gateway config itself. Snapshots are tar archives compressed with
// zstd, optionally encrypted with age for off-site copies.
//
// Restore never overwrites existing files unless forced: a gateway
// being recovered usually has partial state worth keeping until the
// operator has decided otherwise.
package backup

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

// namePrefix and the extension chain identify snapshot files in the
// backup directory.
const (
	namePrefix         = "alona-backup-"
	plainExtension     = ".tar.zst"
	encryptedExtension = ".tar.zst.age"
)

// Options configures snapshot creation.
type Options struct {
	// Include lists the paths bundled into the snapshot. Every entry
	// must exist; a missing path fails the backup rather than
	// producing a silently incomplete archive.
	Include []string

	// OutputDir is where the snapshot file is written.
	OutputDir string

	// Recipients are age public keys. When non-empty, the snapshot is
	// encrypted to all of them.
	Recipients []string

	// Logger receives progress messages. Nil means silent.
	Logger *slog.Logger
}

// Snapshot describes one snapshot file on disk.
type Snapshot struct {
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	Encrypted bool      `json:"encrypted"`
	CreatedAt time.Time `json:"created_at"`
}

// Create writes a new snapshot containing every path in opts.Include.
func Create(opts Options) (*Snapshot, error) {
	if len(opts.Include) == 0 {
		return nil, fmt.Errorf("backup: no paths to include")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	for _, include := range opts.Include {
		if _, err := os.Stat(include); err != nil {
			return nil, fmt.Errorf("backup source %s: %w", include, err)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup directory %s: %w", opts.OutputDir, err)
	}

	encrypted := len(opts.Recipients) > 0
	extension := plainExtension
	if encrypted {
		extension = encryptedExtension
	}
	createdAt := time.Now().UTC()
	name := namePrefix + createdAt.Format("20060102T150405Z") + extension
	path := filepath.Join(opts.OutputDir, name)

	// Write to a staging name and rename on success so a crashed
	// backup never leaves a plausible-looking partial snapshot.
	staging := path + ".partial"
	file, err := os.OpenFile(staging, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating snapshot %s: %w", staging, err)
	}
	defer os.Remove(staging)

	var sink io.WriteCloser = file
	var encryptionLayer io.WriteCloser
	if encrypted {
		encryptionLayer, err = encryptTo(file, opts.Recipients)
		if err != nil {
			file.Close()
			return nil, err
		}
		sink = encryptionLayer
	}

	zstdWriter, err := zstd.NewWriter(sink)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("initializing zstd writer: %w", err)
	}
	tarWriter := tar.NewWriter(zstdWriter)

	for _, include := range opts.Include {
		logger.Info("archiving", "path", include)
		if err := archivePath(tarWriter, include); err != nil {
			file.Close()
			return nil, err
		}
	}

	// Close the layers inside-out; each flush matters.
	if err := tarWriter.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("finalizing tar stream: %w", err)
	}
	if err := zstdWriter.Close(); err != nil {
		file.Close()
		return nil, fmt.Errorf("finalizing zstd stream: %w", err)
	}
	if encryptionLayer != nil {
		if err := encryptionLayer.Close(); err != nil {
			file.Close()
			return nil, fmt.Errorf("finalizing encryption: %w", err)
		}
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("closing snapshot %s: %w", staging, err)
	}
	if err := os.Rename(staging, path); err != nil {
		return nil, fmt.Errorf("activating snapshot %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("inspecting snapshot %s: %w", path, err)
	}

	logger.Info("snapshot created",
		"path", path,
		"size", info.Size(),
		"encrypted", encrypted,
	)
	return &Snapshot{
		Name:      name,
		Path:      path,
		Size:      info.Size(),
		Encrypted: encrypted,
		CreatedAt: createdAt,
	}, nil
}

// archivePath adds root and everything under it to the archive. Entry
// names are the absolute path with the leading separator stripped, the
// same convention GNU tar uses, so archives from different includes
// never collide.
func archivePath(tarWriter *tar.Writer, root string) error {
	root = filepath.Clean(root)

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", path, err)
		}

		var linkTarget string
		if entry.Type()&fs.ModeSymlink != 0 {
			linkTarget, err = os.Readlink(path)
			if err != nil {
				return fmt.Errorf("reading symlink %s: %w", path, err)
			}
		}

		header, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return fmt.Errorf("building tar header for %s: %w", path, err)
		}
		header.Name = strings.TrimPrefix(path, string(filepath.Separator))
		if entry.IsDir() {
			header.Name += "/"
		}

		if err := tarWriter.WriteHeader(header); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", path, err)
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer file.Close()
		if _, err := io.Copy(tarWriter, file); err != nil {
			return fmt.Errorf("archiving %s: %w", path, err)
		}
		return nil
	})
}

// RestoreOptions configures snapshot restoration.
type RestoreOptions struct {
	// IdentityFile is the age identity file used to decrypt encrypted
	// snapshots. Required when the snapshot name ends in .age.
	IdentityFile string

	// Force allows overwriting files that already exist under the
	// destination root.
	Force bool

	// Logger receives progress messages. Nil means silent.
	Logger *slog.Logger
}

// Restore unpacks the snapshot at snapshotPath under destRoot.
// Archive entry names are absolute paths with the leading separator
// stripped, so restoring with destRoot="/" puts everything back in
// place, while any other root stages the contents for inspection.
func Restore(snapshotPath, destRoot string, opts RestoreOptions) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	file, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", snapshotPath, err)
	}
	defer file.Close()

	var source io.Reader = file
	if strings.HasSuffix(snapshotPath, ".age") {
		source, err = decryptFrom(file, opts.IdentityFile)
		if err != nil {
			return err
		}
	}

	zstdReader, err := zstd.NewReader(source)
	if err != nil {
		return fmt.Errorf("reading zstd stream from %s: %w", snapshotPath, err)
	}
	defer zstdReader.Close()

	tarReader := tar.NewReader(zstdReader)
	restored := 0
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading tar stream from %s: %w", snapshotPath, err)
		}

		targetPath, err := sanitizeRestorePath(destRoot, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, fs.FileMode(header.Mode)&0777|0700); err != nil {
				return fmt.Errorf("creating directory %s: %w", targetPath, err)
			}

		case tar.TypeReg:
			if !opts.Force {
				if _, err := os.Lstat(targetPath); err == nil {
					return fmt.Errorf("restore target %s already exists (use force to overwrite)", targetPath)
				}
			}
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", targetPath, err)
			}
			destination, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fs.FileMode(header.Mode)&0777)
			if err != nil {
				return fmt.Errorf("creating %s: %w", targetPath, err)
			}
			if _, err := io.Copy(destination, tarReader); err != nil {
				destination.Close()
				return fmt.Errorf("restoring %s: %w", targetPath, err)
			}
			if err := destination.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", targetPath, err)
			}
			restored++

		case tar.TypeSymlink:
			if !opts.Force {
				if _, err := os.Lstat(targetPath); err == nil {
					return fmt.Errorf("restore target %s already exists (use force to overwrite)", targetPath)
				}
			}
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return fmt.Errorf("creating directory for %s: %w", targetPath, err)
			}
			os.Remove(targetPath)
			if err := os.Symlink(header.Linkname, targetPath); err != nil {
				return fmt.Errorf("restoring symlink %s -> %s: %w", targetPath, header.Linkname, err)
			}

		default:
			return fmt.Errorf("snapshot entry %s: unsupported type %c", header.Name, header.Typeflag)
		}
	}

	logger.Info("snapshot restored",
		"snapshot", snapshotPath,
		"destination", destRoot,
		"files", restored,
	)
	return nil
}

// sanitizeRestorePath resolves an archive entry name under destRoot
// and verifies it stays inside it.
func sanitizeRestorePath(destRoot, name string) (string, error) {
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("snapshot entry %q escapes the restore root", name)
	}
	return filepath.Join(destRoot, cleaned), nil
}

// List returns the snapshots in dir, newest first. A missing directory
// is an empty list, not an error.
func List(dir string) ([]Snapshot, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading backup directory %s: %w", dir, err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), namePrefix) {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".partial") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			Size:      info.Size(),
			Encrypted: strings.HasSuffix(entry.Name(), ".age"),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].CreatedAt.After(snapshots[j].CreatedAt)
	})
	return snapshots, nil
}

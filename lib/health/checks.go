// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package health

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/alona-iot/infra/lib/digest"
	"github.com/alona-iot/infra/lib/release"
	"github.com/alona-iot/infra/lib/systemd"
)

// ServiceCheck verifies the backend unit is active.
func ServiceCheck(client *systemd.Client, unit string) Check {
	return Check{
		Name: "service",
		Run: func(ctx context.Context) Result {
			state, err := client.ActiveState(ctx, unit)
			if err != nil {
				return Fail("service", fmt.Sprintf("cannot query %s: %v", unit, err))
			}
			if state != "active" {
				return Fail("service", fmt.Sprintf("%s is %s", unit, state))
			}
			return Pass("service", fmt.Sprintf("%s is active", unit))
		},
	}
}

// ReleaseCheck verifies the current pointer resolves to a release with
// an executable entry point. When expectedDigest is non-empty (taken
// from the deployment history), the installed entry point is rehashed
// and compared, detecting out-of-band modification of a release that
// is supposed to be immutable.
func ReleaseCheck(store *release.Store, expectedDigest string) Check {
	return Check{
		Name: "release",
		Run: func(ctx context.Context) Result {
			status, err := store.Status()
			if err != nil {
				return Fail("release", fmt.Sprintf("reading release store: %v", err))
			}
			if status.Current == nil {
				return Fail("release", "no release deployed (current pointer unset)")
			}

			entryPath := store.EntryPointPath(status.Current.Path)
			info, err := os.Stat(entryPath)
			if err != nil {
				return Fail("release", fmt.Sprintf("current release %s: entry point missing: %v",
					status.Current.Version, err))
			}
			if info.Mode().Perm()&0111 == 0 {
				return Fail("release", fmt.Sprintf("current release %s: entry point is not executable",
					status.Current.Version))
			}

			if expectedDigest != "" {
				actual, err := digest.File(entryPath)
				if err != nil {
					return Fail("release", fmt.Sprintf("hashing entry point: %v", err))
				}
				if actual != expectedDigest {
					return Fail("release", fmt.Sprintf("current release %s: entry point digest mismatch (tampered or corrupted)",
						status.Current.Version))
				}
			}

			return Pass("release", fmt.Sprintf("current release %s is intact", status.Current.Version))
		},
	}
}

// DiskCheck verifies the filesystem holding path has at least
// minFreePercent of its space free. The gateway spools telemetry to
// disk while the uplink is down; a full disk silently drops data.
func DiskCheck(path string, minFreePercent int) Check {
	return Check{
		Name: "disk",
		Run: func(ctx context.Context) Result {
			var stat unix.Statfs_t
			if err := unix.Statfs(path, &stat); err != nil {
				return Fail("disk", fmt.Sprintf("statfs %s: %v", path, err))
			}
			if stat.Blocks == 0 {
				return Fail("disk", fmt.Sprintf("statfs %s reported zero blocks", path))
			}

			freePercent := int(stat.Bavail * 100 / stat.Blocks)
			message := fmt.Sprintf("%d%% free on %s", freePercent, path)
			if freePercent < minFreePercent {
				return Fail("disk", message+fmt.Sprintf(" (below %d%% threshold)", minFreePercent))
			}
			return Pass("disk", message)
		},
	}
}

// DatabaseCheck runs SQLite's integrity check against the deployment
// history database. A database that has never been created is a
// warning, not a failure: the host may be freshly imaged.
func DatabaseCheck(path string) Check {
	return Check{
		Name: "database",
		Run: func(ctx context.Context) Result {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				return Warn("database", fmt.Sprintf("%s does not exist yet", path))
			}

			conn, err := sqlite.OpenConn(path, sqlite.OpenReadOnly)
			if err != nil {
				return Fail("database", fmt.Sprintf("opening %s: %v", path, err))
			}
			defer conn.Close()

			var verdict string
			err = sqlitex.ExecuteTransient(conn, "PRAGMA integrity_check", &sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					if verdict == "" {
						verdict = stmt.ColumnText(0)
					}
					return nil
				},
			})
			if err != nil {
				return Fail("database", fmt.Sprintf("integrity check on %s: %v", path, err))
			}
			if verdict != "ok" {
				return Fail("database", fmt.Sprintf("%s integrity check: %s", path, verdict))
			}
			return Pass("database", fmt.Sprintf("%s integrity ok", path))
		},
	}
}

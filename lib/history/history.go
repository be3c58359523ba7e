// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package history persists an append-only log of deployment operations
// in SQLite. Every deploy, switch, and rollback is recorded with its
// outcome, so an operator reconnecting to a remote gateway weeks later
// can reconstruct what happened from the device itself.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/alona-iot/infra/lib/sqlitepool"
)

// Action identifies the operation a record describes.
type Action string

const (
	ActionDeploy   Action = "deploy"
	ActionSwitch   Action = "switch"
	ActionRollback Action = "rollback"
)

// Record is one deployment history entry.
type Record struct {
	// ID is the database row ID, assigned on append.
	ID int64 `json:"id"`

	// Time is when the operation finished, in UTC.
	Time time.Time `json:"time"`

	// Action is the operation performed.
	Action Action `json:"action"`

	// Version is the release version the operation targeted.
	Version string `json:"version"`

	// ArtifactDigest is the BLAKE3 digest of the deployed artifact.
	// Empty for switch and rollback records.
	ArtifactDigest string `json:"artifact_digest,omitempty"`

	// EntryPointDigest is the BLAKE3 digest of the installed
	// entry-point executable at deploy time. Health checks compare the
	// file on disk against this to detect tampering.
	EntryPointDigest string `json:"entry_point_digest,omitempty"`

	// Succeeded records whether the operation completed.
	Succeeded bool `json:"succeeded"`

	// Detail carries the error condition for failed operations, or
	// free-form context for successful ones.
	Detail string `json:"detail,omitempty"`
}

// Log is the deployment history store.
type Log struct {
	pool *sqlitepool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS deployments (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    time            TEXT    NOT NULL,
    action          TEXT    NOT NULL,
    version         TEXT    NOT NULL,
    artifact_digest TEXT    NOT NULL DEFAULT '',
    entry_digest    TEXT    NOT NULL DEFAULT '',
    succeeded       INTEGER NOT NULL,
    detail          TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS deployments_time ON deployments (time DESC);
`

// Open opens (creating if necessary) the history database at path.
// The caller must Close the log when done.
func Open(path string, logger *slog.Logger) (*Log, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		PoolSize: 1,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	return &Log{pool: pool}, nil
}

// Close releases the underlying database connections.
func (l *Log) Close() error {
	return l.pool.Close()
}

// Append records one operation. The record's ID and zero Time are
// filled in; a zero Time becomes the current UTC time.
func (l *Log) Append(ctx context.Context, record *Record) error {
	if record.Time.IsZero() {
		record.Time = time.Now().UTC()
	}

	conn, err := l.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer l.pool.Put(conn)

	err = sqlitex.Execute(conn, `
		INSERT INTO deployments (time, action, version, artifact_digest, entry_digest, succeeded, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				record.Time.Format(time.RFC3339Nano),
				string(record.Action),
				record.Version,
				record.ArtifactDigest,
				record.EntryPointDigest,
				boolToInt(record.Succeeded),
				record.Detail,
			},
		})
	if err != nil {
		return fmt.Errorf("appending history record: %w", err)
	}

	record.ID = conn.LastInsertRowID()
	return nil
}

// List returns the most recent records, newest first. limit <= 0 means
// a default of 20.
func (l *Log) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	conn, err := l.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer l.pool.Put(conn)

	var records []Record
	err = sqlitex.Execute(conn, `
		SELECT id, time, action, version, artifact_digest, entry_digest, succeeded, detail
		FROM deployments ORDER BY id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				recordTime, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(1))
				if err != nil {
					return fmt.Errorf("parsing record time %q: %w", stmt.ColumnText(1), err)
				}
				records = append(records, Record{
					ID:               stmt.ColumnInt64(0),
					Time:             recordTime,
					Action:           Action(stmt.ColumnText(2)),
					Version:          stmt.ColumnText(3),
					ArtifactDigest:   stmt.ColumnText(4),
					EntryPointDigest: stmt.ColumnText(5),
					Succeeded:        stmt.ColumnInt64(6) != 0,
					Detail:           stmt.ColumnText(7),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return records, nil
}

// DeployedDigest returns the entry-point digest recorded by the most
// recent successful deploy of version. Returns "" when no such record
// exists (history predates the column, or the version was never
// deployed through this tool).
func (l *Log) DeployedDigest(ctx context.Context, version string) (string, error) {
	conn, err := l.pool.Take(ctx)
	if err != nil {
		return "", err
	}
	defer l.pool.Put(conn)

	var digest string
	err = sqlitex.Execute(conn, `
		SELECT entry_digest FROM deployments
		WHERE action = 'deploy' AND version = ? AND succeeded = 1
		ORDER BY id DESC LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{version},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				digest = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("looking up deployed digest: %w", err)
	}
	return digest, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

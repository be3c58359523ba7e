// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package backup implements the "alona backup" CLI subcommands for
// creating, restoring, and listing configuration snapshots.
package backup

import (
	"github.com/alona-iot/infra/cmd/alona/cli"
)

// Command returns the top-level "backup" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "backup",
		Summary: "Create and restore gateway snapshots",
		Description: `Bundle the gateway's configuration and state directories into
zstd-compressed tar snapshots, optionally encrypted to age recipients
for safe off-site storage.

The paths included in a snapshot come from the backup.include list in
the config file, overridable per invocation with --include.`,
		Subcommands: []*cli.Command{
			createCommand(),
			restoreCommand(),
			listCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Snapshot the configured paths",
				Command:     "alona backup create",
			},
			{
				Description: "Restore a snapshot into a staging directory",
				Command:     "alona backup restore alona-backup-20260830-120000.tar.zst --dest /tmp/staged",
			},
		},
	}
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/backup"
	"github.com/alona-iot/infra/lib/config"
)

type restoreParams struct {
	Config   string `flag:"config" desc:"config file path"`
	Dest     string `flag:"dest" desc:"destination root to unpack under" default:"/"`
	Identity string `flag:"identity" desc:"age identity file for encrypted snapshots (default: configured identity)"`
	Force    bool   `flag:"force,f" desc:"overwrite files that already exist"`
}

func restoreCommand() *cli.Command {
	var params restoreParams

	return &cli.Command{
		Name:    "restore",
		Summary: "Unpack a snapshot",
		Usage:   "alona backup restore <snapshot> [flags]",
		Description: `Unpack a snapshot under the destination root. Snapshot entries are
absolute paths with the leading separator stripped, so the default
root of "/" puts everything back in place, while any other root
stages the contents for inspection.

Existing files are never overwritten without --force. A bare snapshot
name is resolved against the configured backups directory.`,
		Examples: []cli.Example{
			{
				Description: "Stage a snapshot for inspection",
				Command:     "alona backup restore alona-backup-20260830-120000.tar.zst --dest /tmp/staged",
			},
			{
				Description: "Restore in place, replacing current files",
				Command:     "alona backup restore alona-backup-20260830-120000.tar.zst --force",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("restore", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected <snapshot>, got %d args", len(args))
			}

			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			logger := cli.NewCommandLogger().With("command", "backup/restore")

			snapshotPath := args[0]
			if !filepath.IsAbs(snapshotPath) && filepath.Dir(snapshotPath) == "." {
				snapshotPath = filepath.Join(cfg.Paths.Backups, snapshotPath)
			}

			identity := cfg.Backup.IdentityFile
			if params.Identity != "" {
				identity = params.Identity
			}

			err = backup.Restore(snapshotPath, params.Dest, backup.RestoreOptions{
				IdentityFile: identity,
				Force:        params.Force,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			fmt.Printf("restored %s under %s\n", filepath.Base(snapshotPath), params.Dest)
			return nil
		},
	}
}

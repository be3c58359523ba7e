// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/backup"
	"github.com/alona-iot/infra/lib/config"
)

type createParams struct {
	cli.JSONOutput
	Config  string   `flag:"config" desc:"config file path"`
	Output  string   `flag:"output,o" desc:"directory to write the snapshot into (default: configured backups dir)"`
	Include []string `flag:"include" desc:"paths to include (default: configured include list)"`
	Plain   bool     `flag:"plain" desc:"skip age encryption even when recipients are configured"`
}

func createCommand() *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a snapshot of the configured paths",
		Usage:   "alona backup create [flags]",
		Description: `Write a zstd-compressed tar snapshot of the configured include
paths. Every included path must exist; a missing path fails the
backup rather than producing a silently incomplete archive.

When age recipients are configured the snapshot is encrypted to all
of them, unless --plain is given.`,
		Examples: []cli.Example{
			{
				Description: "Snapshot into the configured backups directory",
				Command:     "alona backup create",
			},
			{
				Description: "One-off snapshot of a single directory",
				Command:     "alona backup create --include /etc/alona --output /tmp",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("create", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			logger := cli.NewCommandLogger().With("command", "backup/create")

			include := cfg.Backup.Include
			if len(params.Include) > 0 {
				include = params.Include
			}
			outputDir := cfg.Paths.Backups
			if params.Output != "" {
				outputDir = params.Output
			}
			recipients := cfg.Backup.AgeRecipients
			if params.Plain {
				recipients = nil
			}

			snapshot, err := backup.Create(backup.Options{
				Include:    include,
				OutputDir:  outputDir,
				Recipients: recipients,
				Logger:     logger,
			})
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(snapshot); done {
				return err
			}
			fmt.Printf("wrote %s (%d bytes)\n", snapshot.Path, snapshot.Size)
			return nil
		},
	}
}

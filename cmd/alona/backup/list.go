// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package backup

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/backup"
	"github.com/alona-iot/infra/lib/config"
)

type listParams struct {
	cli.JSONOutput
	Config string `flag:"config" desc:"config file path"`
}

func listCommand() *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Summary: "List snapshots in the backups directory",
		Usage:   "alona backup list [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			snapshots, err := backup.List(cfg.Paths.Backups)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(snapshots); done {
				return err
			}

			if len(snapshots) == 0 {
				fmt.Println("no snapshots")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "NAME\tSIZE\tCREATED\tENCRYPTED\n")
			for _, snapshot := range snapshots {
				encrypted := "no"
				if snapshot.Encrypted {
					encrypted = "yes"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					snapshot.Name, snapshot.Size,
					snapshot.CreatedAt.Local().Format("2006-01-02 15:04:05"), encrypted)
			}
			return tw.Flush()
		},
	}
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/config"
	"github.com/alona-iot/infra/lib/history"
)

type historyParams struct {
	cli.JSONOutput
	Config string `flag:"config" desc:"config file path"`
	Limit  int    `flag:"limit,n" desc:"maximum records to show" default:"20"`
}

func historyCommand() *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "Show recent deployment operations",
		Usage:   "alona release history [flags]",
		Description: `List recent deploy, switch, and rollback operations from the
on-device history database, newest first. Failed operations are
included with their error condition.`,
		Examples: []cli.Example{
			{
				Description: "Last five operations as JSON",
				Command:     "alona release history --limit 5 --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("history", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			logger := cli.NewCommandLogger().With("command", "release/history")
			log, err := history.Open(cfg.Paths.HistoryDB, logger)
			if err != nil {
				return err
			}
			defer log.Close()

			records, err := log.List(context.Background(), params.Limit)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(records); done {
				return err
			}

			if len(records) == 0 {
				fmt.Println("no history")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "TIME\tACTION\tVERSION\tRESULT\tDETAIL\n")
			for _, rec := range records {
				result := "ok"
				if !rec.Succeeded {
					result = "FAILED"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					rec.Time.Local().Format("2006-01-02 15:04:05"),
					rec.Action, rec.Version, result, rec.Detail)
			}
			return tw.Flush()
		},
	}
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/config"
	"github.com/alona-iot/infra/lib/history"
	"github.com/alona-iot/infra/lib/release"
)

type rollbackParams struct {
	cli.JSONOutput
	Config    string `flag:"config" desc:"config file path"`
	NoRestart bool   `flag:"no-restart" desc:"skip the service restart after switching"`
}

// rollbackResult is the JSON shape for a completed rollback.
type rollbackResult struct {
	Version string `json:"version"`
}

func rollbackCommand() *cli.Command {
	var params rollbackParams

	return &cli.Command{
		Name:    "rollback",
		Summary: "Switch back to the previous release",
		Usage:   "alona release rollback [flags]",
		Description: `Point the current release back at the previous one.

Rollback is a single step: the previous pointer is left in place, so
running rollback twice in a row settles on the same release rather
than ping-ponging. Exits with status 5 when there is no previous
release to return to.`,
		Examples: []cli.Example{
			{
				Description: "Roll back and restart the service",
				Command:     "alona release rollback",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("rollback", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			ctx := context.Background()
			logger := cli.NewCommandLogger().With("command", "release/rollback")
			store := release.New(cfg.Paths.Prefix, cfg.Release.EntryPoint, logger)

			log := openHistory(cfg, logger)
			if log != nil {
				defer log.Close()
			}

			version, err := store.Rollback()
			record(ctx, log, logger, &history.Record{
				Action:    history.ActionRollback,
				Version:   version,
				Succeeded: err == nil,
				Detail:    errorDetail(err),
			})
			if err != nil {
				return conditionExit(err)
			}

			if !params.NoRestart {
				if err := restartService(ctx, cfg, logger); err != nil {
					return err
				}
			}

			if done, err := params.EmitJSON(rollbackResult{Version: version}); done {
				return err
			}
			fmt.Printf("rolled back to %s\n", version)
			return nil
		},
	}
}

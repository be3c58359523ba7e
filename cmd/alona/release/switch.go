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

type switchParams struct {
	cli.JSONOutput
	Config    string `flag:"config" desc:"config file path"`
	NoRestart bool   `flag:"no-restart" desc:"skip the service restart after switching"`
}

// switchResult is the JSON shape for a completed switch.
type switchResult struct {
	Version string `json:"version"`
}

func switchCommand() *cli.Command {
	var params switchParams

	return &cli.Command{
		Name:    "switch",
		Summary: "Activate an already-deployed release",
		Usage:   "alona release switch <version> [flags]",
		Description: `Atomically point the current release at a version that is already
present in the release store. The outgoing release becomes the
previous one, so a subsequent rollback returns to it.

Useful for reactivating an older release that was deployed earlier
without re-uploading its artifact. Exits with status 6 when the
version is not in the store.`,
		Examples: []cli.Example{
			{
				Description: "Reactivate an older release",
				Command:     "alona release switch v1.3.2",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("switch", &params)
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected <version>, got %d args", len(args))
			}
			version := args[0]

			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			ctx := context.Background()
			logger := cli.NewCommandLogger().With("command", "release/switch", "version", version)
			store := release.New(cfg.Paths.Prefix, cfg.Release.EntryPoint, logger)

			log := openHistory(cfg, logger)
			if log != nil {
				defer log.Close()
			}

			err = store.Switch(version)
			record(ctx, log, logger, &history.Record{
				Action:    history.ActionSwitch,
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

			if done, err := params.EmitJSON(switchResult{Version: version}); done {
				return err
			}
			fmt.Printf("switched to %s\n", version)
			return nil
		},
	}
}

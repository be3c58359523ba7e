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

type deployParams struct {
	cli.JSONOutput
	Config    string `flag:"config" desc:"config file path"`
	NoRestart bool   `flag:"no-restart" desc:"skip the service restart after switching"`
}

func deployCommand() *cli.Command {
	var params deployParams

	return &cli.Command{
		Name:    "deploy",
		Summary: "Deploy a release artifact and switch to it",
		Usage:   "alona release deploy <artifact> <version> [flags]",
		Description: `Extract a tar.gz artifact into a new release directory, validate
that it contains the service entry point, write-protect it, and
atomically switch the current pointer to it.

A failed extraction or validation never touches the pointers; the
partial release directory is left on disk for inspection. After a
successful switch the service is restarted unless --no-restart is
given.`,
		Examples: []cli.Example{
			{
				Description: "Deploy and restart",
				Command:     "alona release deploy /tmp/core-1.4.0.tar.gz v1.4.0",
			},
			{
				Description: "Stage a release without restarting the service",
				Command:     "alona release deploy /tmp/core-1.4.0.tar.gz v1.4.0 --no-restart",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("deploy", &params)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("expected <artifact> <version>, got %d args", len(args))
			}
			artifactPath, version := args[0], args[1]

			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			ctx := context.Background()
			logger := cli.NewCommandLogger().With("command", "release/deploy", "version", version)
			store := release.New(cfg.Paths.Prefix, cfg.Release.EntryPoint, logger)

			log := openHistory(cfg, logger)
			if log != nil {
				defer log.Close()
			}

			deployment, err := store.Deploy(artifactPath, version)
			entry := &history.Record{
				Action:    history.ActionDeploy,
				Version:   version,
				Succeeded: err == nil,
				Detail:    errorDetail(err),
			}
			if deployment != nil {
				entry.ArtifactDigest = deployment.ArtifactDigest
				entry.EntryPointDigest = deployment.EntryPointDigest
			}
			record(ctx, log, logger, entry)
			if err != nil {
				return conditionExit(err)
			}

			if !params.NoRestart {
				if err := restartService(ctx, cfg, logger); err != nil {
					return err
				}
			}

			if done, err := params.EmitJSON(deployment); done {
				return err
			}
			fmt.Printf("deployed %s (%s)\n", deployment.Version, deployment.Path)
			return nil
		},
	}
}

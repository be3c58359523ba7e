// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package health implements the "alona health" CLI command, a
// self-contained checkup an operator runs over a flaky SSH link to
// answer "is this gateway okay" in one round trip.
package health

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/config"
	"github.com/alona-iot/infra/lib/health"
	"github.com/alona-iot/infra/lib/history"
	"github.com/alona-iot/infra/lib/release"
	"github.com/alona-iot/infra/lib/systemd"
)

type healthParams struct {
	cli.JSONOutput
	Config   string        `flag:"config" desc:"config file path"`
	NoBroker bool          `flag:"no-broker" desc:"skip the MQTT broker connectivity check"`
	Timeout  time.Duration `flag:"timeout" desc:"broker connect timeout" default:"5s"`
}

// Command returns the "health" command.
func Command() *cli.Command {
	var params healthParams

	return &cli.Command{
		Name:    "health",
		Summary: "Run gateway health checks",
		Usage:   "alona health [flags]",
		Description: `Run the full gateway checkup: service state, active release
integrity, free disk space, history database integrity, and MQTT
broker connectivity.

The release check verifies the entry point against the digest
recorded at deploy time, so silent corruption or tampering of the
active release shows up here. Exits non-zero when any check fails;
warnings do not affect the exit status.`,
		Examples: []cli.Example{
			{
				Description: "Full checkup",
				Command:     "alona health",
			},
			{
				Description: "Machine-readable results without the broker probe",
				Command:     "alona health --no-broker --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("health", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			ctx := context.Background()
			logger := cli.NewCommandLogger().With("command", "health")
			store := release.New(cfg.Paths.Prefix, cfg.Release.EntryPoint, logger)

			checks := []health.Check{
				health.ServiceCheck(systemd.New(logger), cfg.Service.Unit),
				health.ReleaseCheck(store, deployedDigest(ctx, cfg, store, logger)),
				health.DiskCheck(cfg.Paths.Data, cfg.Health.MinDiskPercent),
				health.DatabaseCheck(cfg.Paths.HistoryDB),
			}
			if !params.NoBroker {
				checks = append(checks, health.BrokerCheck(health.BrokerConfig{
					Address:      cfg.Broker.Address,
					Username:     cfg.Broker.Username,
					PasswordFile: cfg.Broker.PasswordFile,
					Timeout:      params.Timeout,
				}))
			}

			results := health.RunAll(ctx, checks)

			if done, err := params.EmitJSON(results); done {
				if err != nil {
					return err
				}
				if health.AnyFailed(results) {
					return &cli.ExitError{Code: 1}
				}
				return nil
			}

			health.PrintChecklist(os.Stdout, results)
			if health.AnyFailed(results) {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// deployedDigest looks up the entry-point digest recorded when the
// currently active version was deployed. Best effort: a missing
// history database or a release activated outside the deploy command
// simply disables digest verification, it does not fail the checkup.
func deployedDigest(ctx context.Context, cfg *config.Config, store *release.Store, logger *slog.Logger) string {
	status, err := store.Status()
	if err != nil || status.Current == nil {
		return ""
	}

	log, err := history.Open(cfg.Paths.HistoryDB, nil)
	if err != nil {
		logger.Warn("history database unavailable, skipping digest verification", "error", err)
		return ""
	}
	defer log.Close()

	digest, err := log.DeployedDigest(ctx, status.Current.Version)
	if err != nil {
		logger.Warn("digest lookup failed", "error", err)
		return ""
	}
	return digest
}

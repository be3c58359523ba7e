// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package release implements the "alona release" CLI subcommands for
// deploying, switching, and rolling back versioned releases of the
// gateway service.
//
// Release operations exit with distinct status codes so that
// supervisors and remote automation can branch on the failure
// condition without parsing output:
//
//	0  success
//	1  unexpected error (or service failed to start after a switch)
//	2  artifact not found
//	3  version already exists
//	4  release validation failed
//	5  no previous release to roll back to
//	6  version not found in the release store
package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/config"
	"github.com/alona-iot/infra/lib/history"
	"github.com/alona-iot/infra/lib/release"
	"github.com/alona-iot/infra/lib/systemd"
)

// Exit codes for the distinct release error conditions.
const (
	exitArtifactNotFound  = 2
	exitVersionExists     = 3
	exitValidationFailed  = 4
	exitNoPreviousRelease = 5
	exitVersionNotFound   = 6
)

// Command returns the top-level "release" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "release",
		Summary: "Deploy, switch, and roll back gateway releases",
		Description: `Manage versioned releases of the gateway service.

Releases live under <prefix>/releases/<version> with "current" and
"previous" symlinks selecting the active and fallback versions. Deploy
extracts a tar.gz artifact into a fresh release directory, validates
it, write-protects it, and atomically switches the current pointer.
Rollback restores the previous release in a single step.`,
		Subcommands: []*cli.Command{
			deployCommand(),
			rollbackCommand(),
			switchCommand(),
			statusCommand(),
			historyCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Deploy a new release and restart the service",
				Command:     "alona release deploy /tmp/core-1.4.0.tar.gz v1.4.0",
			},
			{
				Description: "Roll back to the previous release",
				Command:     "alona release rollback",
			},
			{
				Description: "Show the active release and store contents",
				Command:     "alona release status",
			},
		},
	}
}

// conditionExit converts the release store's sentinel errors into
// ExitErrors with their documented codes. The error message is printed
// here since main suppresses output for ExitError. Unrecognized errors
// pass through for the generic exit-1 path.
func conditionExit(err error) error {
	code := 0
	switch {
	case errors.Is(err, release.ErrArtifactNotFound):
		code = exitArtifactNotFound
	case errors.Is(err, release.ErrVersionAlreadyExists):
		code = exitVersionExists
	case errors.Is(err, release.ErrValidationFailed):
		code = exitValidationFailed
	case errors.Is(err, release.ErrNoPreviousRelease):
		code = exitNoPreviousRelease
	case errors.Is(err, release.ErrVersionNotFound):
		code = exitVersionNotFound
	default:
		return err
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	return &cli.ExitError{Code: code}
}

// openHistory opens the deployment history log. History is an audit
// trail, not a precondition: a gateway with a corrupt or unwritable
// history database must still be able to deploy and roll back, so
// failures here are logged and a nil log is returned.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Log {
	log, err := history.Open(cfg.Paths.HistoryDB, logger)
	if err != nil {
		logger.Warn("history database unavailable, operation will not be recorded",
			"path", cfg.Paths.HistoryDB, "error", err)
		return nil
	}
	return log
}

// record appends to the history log when it is available.
func record(ctx context.Context, log *history.Log, logger *slog.Logger, entry *history.Record) {
	if log == nil {
		return
	}
	if err := log.Append(ctx, entry); err != nil {
		logger.Warn("recording history entry failed", "error", err)
	}
}

// errorDetail renders an error for the history record's detail column.
func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// restartService restarts the configured unit and verifies it came up.
// When the unit fails to reach active state, the recent journal tail is
// printed so the operator sees the crash without a second command.
func restartService(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client := systemd.New(logger)

	logger.Info("restarting service", "unit", cfg.Service.Unit)
	if err := client.Restart(ctx, cfg.Service.Unit); err != nil {
		return fmt.Errorf("restarting %s: %w", cfg.Service.Unit, err)
	}

	state, err := client.ActiveState(ctx, cfg.Service.Unit)
	if err != nil {
		return fmt.Errorf("checking %s after restart: %w", cfg.Service.Unit, err)
	}
	if state != "active" {
		if tail, logErr := client.Logs(ctx, cfg.Service.Unit, 20); logErr == nil {
			fmt.Fprintln(os.Stderr, tail)
		}
		return fmt.Errorf("%s is %s after restart", cfg.Service.Unit, state)
	}

	logger.Info("service active", "unit", cfg.Service.Unit)
	return nil
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package systemd controls the gateway's backend service through
// systemctl and journalctl. The tooling never talks to D-Bus directly:
// the same systemctl invocations an operator would type by hand are
// what the tooling runs, so behavior under sudo, SSH, and recovery
// shells is identical to manual operation.
package systemd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// runFunc executes a command and returns its combined output. Replaced
// in tests to avoid requiring a live systemd.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client issues service-control commands to systemd.
type Client struct {
	run    runFunc
	logger *slog.Logger
}

// New creates a Client that executes real systemctl/journalctl
// commands.
func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			command := exec.CommandContext(ctx, name, args...)
			var output bytes.Buffer
			command.Stdout = &output
			command.Stderr = &output
			err := command.Run()
			return output.Bytes(), err
		},
		logger: logger,
	}
}

// Restart restarts the unit. Failures are reported, never retried:
// automatic retry on an unattended gateway can mask a service that is
// crash-looping.
func (c *Client) Restart(ctx context.Context, unit string) error {
	c.logger.Info("restarting service", "unit", unit)
	output, err := c.run(ctx, "systemctl", "restart", unit)
	if err != nil {
		return fmt.Errorf("restarting %s: %w (output: %s)", unit, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ActiveState returns the unit's activation state as reported by
// systemctl is-active (e.g., "active", "inactive", "failed").
// is-active exits non-zero for any state other than "active"; that is
// a state report, not an error, so the exit status is swallowed when
// output was produced.
func (c *Client) ActiveState(ctx context.Context, unit string) (string, error) {
	output, err := c.run(ctx, "systemctl", "is-active", unit)
	state := strings.TrimSpace(string(output))
	if state == "" {
		if err != nil {
			return "", fmt.Errorf("querying %s state: %w", unit, err)
		}
		return "", fmt.Errorf("querying %s state: empty response", unit)
	}
	return state, nil
}

// IsActive reports whether the unit is in the "active" state.
func (c *Client) IsActive(ctx context.Context, unit string) (bool, error) {
	state, err := c.ActiveState(ctx, unit)
	if err != nil {
		return false, err
	}
	return state == "active", nil
}

// Logs returns the last lines of the unit's journal. The operator
// inspects these after a restart to confirm the service came up on the
// new release.
func (c *Client) Logs(ctx context.Context, unit string, lines int) (string, error) {
	if lines <= 0 {
		lines = 20
	}
	output, err := c.run(ctx, "journalctl",
		"-u", unit,
		"-n", strconv.Itoa(lines),
		"--no-pager",
	)
	if err != nil {
		return "", fmt.Errorf("reading journal for %s: %w (output: %s)", unit, err, strings.TrimSpace(string(output)))
	}
	return string(output), nil
}

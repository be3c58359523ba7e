// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the "alona service" CLI subcommands for
// supervising the gateway's systemd unit.
package service

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/config"
	"github.com/alona-iot/infra/lib/systemd"
)

// Command returns the top-level "service" command with all subcommands.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "service",
		Summary: "Supervise the gateway service unit",
		Description: `Restart and inspect the systemd unit running the gateway service.
The unit name comes from the service.unit config value, overridable
with --unit for one-off operations on other units.`,
		Subcommands: []*cli.Command{
			restartCommand(),
			statusCommand(),
			logsCommand(),
		},
		Examples: []cli.Example{
			{
				Description: "Restart the gateway service",
				Command:     "alona service restart",
			},
			{
				Description: "Tail the last 50 journal lines",
				Command:     "alona service logs -n 50",
			},
		},
	}
}

// resolveUnit applies a --unit override to the configured unit name.
func resolveUnit(override string, cfg *config.Config) string {
	if override != "" {
		return override
	}
	return cfg.Service.Unit
}

type restartParams struct {
	Config string `flag:"config" desc:"config file path"`
	Unit   string `flag:"unit" desc:"systemd unit to operate on (default: configured unit)"`
}

func restartCommand() *cli.Command {
	var params restartParams

	return &cli.Command{
		Name:    "restart",
		Summary: "Restart the service unit",
		Usage:   "alona service restart [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("restart", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			unit := resolveUnit(params.Unit, cfg)
			logger := cli.NewCommandLogger().With("command", "service/restart", "unit", unit)
			client := systemd.New(logger)

			ctx := context.Background()
			if err := client.Restart(ctx, unit); err != nil {
				return err
			}

			state, err := client.ActiveState(ctx, unit)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", unit, state)
			if state != "active" {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

type statusResult struct {
	Unit  string `json:"unit"`
	State string `json:"state"`
}

type serviceStatusParams struct {
	cli.JSONOutput
	Config string `flag:"config" desc:"config file path"`
	Unit   string `flag:"unit" desc:"systemd unit to operate on (default: configured unit)"`
}

func statusCommand() *cli.Command {
	var params serviceStatusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show the unit's active state",
		Usage:   "alona service status [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			unit := resolveUnit(params.Unit, cfg)
			logger := cli.NewCommandLogger().With("command", "service/status", "unit", unit)
			client := systemd.New(logger)

			state, err := client.ActiveState(context.Background(), unit)
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(statusResult{Unit: unit, State: state}); done {
				return err
			}
			fmt.Printf("%s: %s\n", unit, state)
			if state != "active" {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

type logsParams struct {
	Config string `flag:"config" desc:"config file path"`
	Unit   string `flag:"unit" desc:"systemd unit to operate on (default: configured unit)"`
	Lines  int    `flag:"lines,n" desc:"journal lines to show" default:"20"`
}

func logsCommand() *cli.Command {
	var params logsParams

	return &cli.Command{
		Name:    "logs",
		Summary: "Show recent journal output for the unit",
		Usage:   "alona service logs [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("logs", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			unit := resolveUnit(params.Unit, cfg)
			logger := cli.NewCommandLogger().With("command", "service/logs", "unit", unit)
			client := systemd.New(logger)

			output, err := client.Logs(context.Background(), unit, params.Lines)
			if err != nil {
				return err
			}
			fmt.Println(output)
			return nil
		},
	}
}

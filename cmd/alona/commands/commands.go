// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete alona CLI command tree.
package commands

import (
	"fmt"

	backupcmd "github.com/alona-iot/infra/cmd/alona/backup"
	"github.com/alona-iot/infra/cmd/alona/cli"
	healthcmd "github.com/alona-iot/infra/cmd/alona/health"
	releasecmd "github.com/alona-iot/infra/cmd/alona/release"
	servicecmd "github.com/alona-iot/infra/cmd/alona/service"
	"github.com/alona-iot/infra/lib/version"
)

// Root builds and returns the complete alona CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "alona",
		Description: `Alona gateway operations toolkit.

Deploy versioned releases of the gateway service with atomic switch
and single-step rollback, snapshot and restore configuration, and run
on-device health checks over a single SSH round trip.`,
		Subcommands: []*cli.Command{
			releasecmd.Command(),
			backupcmd.Command(),
			healthcmd.Command(),
			servicecmd.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("alona %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/alona-iot/infra/cmd/alona/cli"
	"github.com/alona-iot/infra/lib/config"
	"github.com/alona-iot/infra/lib/release"
)

type statusParams struct {
	cli.JSONOutput
	Config string `flag:"config" desc:"config file path"`
}

func statusCommand() *cli.Command {
	var params statusParams

	return &cli.Command{
		Name:    "status",
		Summary: "Show the active release and store contents",
		Usage:   "alona release status [flags]",
		Description: `Resolve the current and previous pointers and list every release in
the store, newest first. A pointer whose target directory was removed
out-of-band still resolves, so the dangling state is visible here
rather than hidden.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			cfg, err := config.Resolve(params.Config)
			if err != nil {
				return err
			}

			logger := cli.NewCommandLogger().With("command", "release/status")
			store := release.New(cfg.Paths.Prefix, cfg.Release.EntryPoint, logger)

			status, err := store.Status()
			if err != nil {
				return err
			}

			if done, err := params.EmitJSON(status); done {
				return err
			}

			printPointer("current", status.Current)
			printPointer("previous", status.Previous)

			if len(status.Releases) == 0 {
				fmt.Println("\nno releases in store")
				return nil
			}

			fmt.Println()
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintf(tw, "VERSION\tDEPLOYED\tPATH\n")
			for _, rel := range status.Releases {
				fmt.Fprintf(tw, "%s\t%s\t%s\n",
					rel.Version, rel.DeployedAt.Format("2006-01-02 15:04:05"), rel.Path)
			}
			return tw.Flush()
		},
	}
}

func printPointer(name string, target *release.Target) {
	if target == nil {
		fmt.Printf("%s: (unset)\n", name)
		return
	}
	fmt.Printf("%s: %s (%s)\n", name, target.Version, target.Path)
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for the alona unified CLI.
//
// The central type is [Command], which represents a named subcommand with
// optional nested [Command.Subcommands], a [pflag.FlagSet] factory, and a
// Run function. Commands are assembled into a tree in cmd/alona/commands
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and structured help output with examples.
//
// When a user types an unknown subcommand or flag, the framework computes
// Levenshtein edit distance against all known names and suggests the
// closest match (threshold: distance <= 3). This is implemented in
// suggest.go.
//
// Flag binding is declarative: commands describe their flags as struct
// tags on a params struct and call [FlagsFromParams]. Embedding
// [JSONOutput] in a params struct adds a --json flag and the
// [JSONOutput.EmitJSON] method for machine-readable output.
//
// [ExitError] lets a command exit with a specific status code without a
// redundant "error:" line; main checks for the ExitCode() interface on
// returned errors.
package cli

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"deploy", "deploy", 0},
		{"deploy", "depoy", 1},
		{"rollback", "rollbak", 1},
		{"status", "stauts", 2},
		{"health", "backup", 6},
	}

	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "deploy"},
		{Name: "rollback"},
		{Name: "status"},
	}

	if got := suggestCommand("depoy", commands); got != "deploy" {
		t.Errorf("suggestCommand(depoy) = %q, want deploy", got)
	}
	if got := suggestCommand("rollbcak", commands); got != "rollback" {
		t.Errorf("suggestCommand(rollbcak) = %q, want rollback", got)
	}
	// Nothing within edit distance 3.
	if got := suggestCommand("frobnicate", commands); got != "" {
		t.Errorf("suggestCommand(frobnicate) = %q, want empty", got)
	}
}

func TestSuggestFlag(t *testing.T) {
	newFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.Bool("no-restart", false, "")
		flagSet.String("config", "", "")
		return flagSet
	}

	if got := suggestFlag([]string{"--no-restrat"}, newFlagSet()); got != "--no-restart" {
		t.Errorf("suggestFlag(--no-restrat) = %q, want --no-restart", got)
	}
	if got := suggestFlag([]string{"--confg=/tmp/x"}, newFlagSet()); got != "--config" {
		t.Errorf("suggestFlag(--confg=...) = %q, want --config", got)
	}
	// Defined flags produce no suggestion.
	if got := suggestFlag([]string{"--config", "/tmp/x"}, newFlagSet()); got != "" {
		t.Errorf("suggestFlag(--config) = %q, want empty", got)
	}
}

// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"

	"github.com/spf13/pflag"
)

// maxSuggestDistance caps how far a typo may be from a real name
// before we stay silent. Three edits covers the usual slips (swapped
// letters, a missing or doubled character) without suggesting
// unrelated names for short inputs.
const maxSuggestDistance = 3

// suggestCommand matches a mistyped subcommand name against the known
// subcommands. Returns "" when nothing is close.
func suggestCommand(unknown string, commands []*Command) string {
	names := make([]string, 0, len(commands))
	for _, command := range commands {
		names = append(names, command.Name)
	}
	return closestMatch(unknown, names)
}

// suggestFlag scans args for the first flag pflag did not recognize
// and proposes the nearest registered flag, with its -- or - prefix
// restored. Returns "" when every flag in args is known or no
// registered flag is close.
func suggestFlag(args []string, flagSet *pflag.FlagSet) string {
	defined := make(map[string]bool)
	var names []string
	flagSet.VisitAll(func(f *pflag.Flag) {
		defined[f.Name] = true
		names = append(names, f.Name)
	})

	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			continue
		}

		name := strings.TrimLeft(arg, "-")
		if index := strings.IndexByte(name, '='); index >= 0 {
			name = name[:index]
		}
		if defined[name] {
			continue
		}

		// First unknown flag is the one pflag reported on.
		match := closestMatch(name, names)
		if match == "" {
			return ""
		}
		if len(match) == 1 {
			return "-" + match
		}
		return "--" + match
	}

	return ""
}

// closestMatch picks the candidate within maxSuggestDistance edits of
// input, preferring the nearest one. Returns "" if none qualify.
func closestMatch(input string, candidates []string) string {
	best := ""
	bestDistance := maxSuggestDistance + 1

	for _, candidate := range candidates {
		if distance := levenshtein(input, candidate); distance < bestDistance {
			bestDistance = distance
			best = candidate
		}
	}

	return best
}

// levenshtein returns the edit distance between a and b, counting
// single-character insertions, deletions, and substitutions.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Keep the shorter string across the row so only len(a)+1 cells
	// are live at a time.
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	current := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}

	for j := 1; j <= len(b); j++ {
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, min(current[i-1]+1, previous[i-1]+cost))
		}
		previous, current = current, previous
	}

	return previous[len(a)]
}

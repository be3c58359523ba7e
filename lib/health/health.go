// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package health runs the gateway's diagnostic checks: service state,
// active release integrity, disk headroom, history database
// consistency, and broker reachability. Each check reports a
// pass/warn/fail result with a human-readable message; nothing is
// repaired automatically: the gateway is unattended, and a masked
// problem is worse than a visible one.
package health

import (
	"context"
	"fmt"
	"io"
)

// Status is the outcome of a single health check.
type Status string

const (
	StatusPass Status = "pass"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result holds the outcome of a single health check.
type Result struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Pass creates a passing check result.
func Pass(name, message string) Result {
	return Result{Name: name, Status: StatusPass, Message: message}
}

// Warn creates a warning result. Warnings do not fail the health
// command.
func Warn(name, message string) Result {
	return Result{Name: name, Status: StatusWarn, Message: message}
}

// Fail creates a failing check result.
func Fail(name, message string) Result {
	return Result{Name: name, Status: StatusFail, Message: message}
}

// Skip creates a skipped result, used when a prerequisite check
// already failed.
func Skip(name, message string) Result {
	return Result{Name: name, Status: StatusSkip, Message: message}
}

// Check is a single named diagnostic.
type Check struct {
	Name string
	Run  func(ctx context.Context) Result
}

// RunAll executes checks in order and collects their results. Checks
// run even after failures; the operator wants the full picture in one
// pass over a slow link.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		results = append(results, check.Run(ctx))
	}
	return results
}

// AnyFailed reports whether any result failed. Warnings and skips do
// not count.
func AnyFailed(results []Result) bool {
	for _, result := range results {
		if result.Status == StatusFail {
			return true
		}
	}
	return false
}

// PrintChecklist writes results in the fixed-width checklist format
// operators see over SSH.
func PrintChecklist(w io.Writer, results []Result) {
	marks := map[Status]string{
		StatusPass: "ok",
		StatusWarn: "warn",
		StatusFail: "FAIL",
		StatusSkip: "skip",
	}
	for _, result := range results {
		fmt.Fprintf(w, "[%-4s] %-20s %s\n", marks[result.Status], result.Name, result.Message)
	}
}

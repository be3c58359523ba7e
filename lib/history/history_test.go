// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	log, err := Open(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := log.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return log
}

func TestAppendAndList(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	deploy := &Record{
		Action:           ActionDeploy,
		Version:          "1.0.0",
		ArtifactDigest:   "abc123",
		EntryPointDigest: "def456",
		Succeeded:        true,
	}
	if err := log.Append(ctx, deploy); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if deploy.ID == 0 {
		t.Error("expected ID to be assigned on append")
	}
	if deploy.Time.IsZero() {
		t.Error("expected Time to be filled in on append")
	}

	rollback := &Record{
		Action:    ActionRollback,
		Version:   "0.9.0",
		Succeeded: false,
		Detail:    "no previous release",
	}
	if err := log.Append(ctx, rollback); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := log.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// Newest first.
	if records[0].Action != ActionRollback {
		t.Errorf("expected newest record first, got action %s", records[0].Action)
	}
	if records[0].Succeeded {
		t.Error("expected failed rollback record")
	}
	if records[0].Detail != "no previous release" {
		t.Errorf("expected detail preserved, got %q", records[0].Detail)
	}
	if records[1].Version != "1.0.0" || records[1].ArtifactDigest != "abc123" {
		t.Errorf("deploy record mangled: %+v", records[1])
	}
	if records[1].EntryPointDigest != "def456" {
		t.Errorf("expected entry-point digest preserved, got %q", records[1].EntryPointDigest)
	}
	if !records[1].Succeeded {
		t.Error("expected successful deploy record")
	}
}

func TestList_Limit(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		record := &Record{
			Action:    ActionSwitch,
			Version:   "v" + string(rune('0'+i)),
			Succeeded: true,
		}
		if err := log.Append(ctx, record); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	records, err := log.List(ctx, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records with limit=3, got %d", len(records))
	}
}

func TestAppend_PreservesExplicitTime(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	stamp := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	record := &Record{
		Time:      stamp,
		Action:    ActionDeploy,
		Version:   "1.2.3",
		Succeeded: true,
	}
	if err := log.Append(ctx, record); err != nil {
		t.Fatalf("Append: %v", err)
	}

	records, err := log.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !records[0].Time.Equal(stamp) {
		t.Errorf("expected time %v, got %v", stamp, records[0].Time)
	}
}

func TestOpen_ReopensExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	first, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := first.Append(ctx, &Record{Action: ActionDeploy, Version: "1.0.0", Succeeded: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer second.Close()

	records, err := second.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Version != "1.0.0" {
		t.Errorf("expected persisted record to survive reopen, got %+v", records)
	}
}

func TestDeployedDigest(t *testing.T) {
	ctx := context.Background()
	log := openTestLog(t)

	records := []*Record{
		{Action: ActionDeploy, Version: "v1", EntryPointDigest: "aaa", Succeeded: true},
		{Action: ActionDeploy, Version: "v2", EntryPointDigest: "bbb", Succeeded: false, Detail: "validation failed"},
		{Action: ActionDeploy, Version: "v2", EntryPointDigest: "ccc", Succeeded: true},
		{Action: ActionRollback, Version: "v1", Succeeded: true},
	}
	for _, record := range records {
		if err := log.Append(ctx, record); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := log.DeployedDigest(ctx, "v2")
	if err != nil {
		t.Fatalf("DeployedDigest: %v", err)
	}
	// The failed deploy of v2 must not shadow the successful one.
	if got != "ccc" {
		t.Errorf("DeployedDigest(v2) = %q, want ccc", got)
	}

	got, err = log.DeployedDigest(ctx, "v9")
	if err != nil {
		t.Fatalf("DeployedDigest: %v", err)
	}
	if got != "" {
		t.Errorf("DeployedDigest(v9) = %q, want empty", got)
	}
}

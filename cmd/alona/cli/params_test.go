// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestBindFlags_BasicTypes(t *testing.T) {
	type params struct {
		Config   string        `flag:"config" desc:"config file path"`
		Force    bool          `flag:"force,f" desc:"overwrite existing files"`
		Lines    int           `flag:"lines" desc:"journal lines to show"`
		MaxBytes int64         `flag:"max-bytes" desc:"size limit"`
		MinDisk  float64       `flag:"min-disk" desc:"minimum free disk percent"`
		Timeout  time.Duration `flag:"timeout" desc:"broker connect timeout"`
		Include  []string      `flag:"include" desc:"paths to include"`
		Internal string        // no flag tag, skipped
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	err := flagSet.Parse([]string{
		"--config", "/etc/alona/config.yaml",
		"-f",
		"--lines", "50",
		"--max-bytes", "1073741824",
		"--min-disk", "12.5",
		"--timeout", "5s",
		"--include", "/etc/alona,/var/lib/alona",
	})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Config != "/etc/alona/config.yaml" {
		t.Errorf("Config = %q", p.Config)
	}
	if !p.Force {
		t.Error("Force = false, want true")
	}
	if p.Lines != 50 {
		t.Errorf("Lines = %d, want 50", p.Lines)
	}
	if p.MaxBytes != 1073741824 {
		t.Errorf("MaxBytes = %d, want 1073741824", p.MaxBytes)
	}
	if p.MinDisk != 12.5 {
		t.Errorf("MinDisk = %f, want 12.5", p.MinDisk)
	}
	if p.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", p.Timeout)
	}
	if len(p.Include) != 2 || p.Include[0] != "/etc/alona" || p.Include[1] != "/var/lib/alona" {
		t.Errorf("Include = %v", p.Include)
	}
	if p.Internal != "" {
		t.Errorf("Internal = %q, want empty (should be skipped)", p.Internal)
	}
}

func TestBindFlags_Defaults(t *testing.T) {
	type params struct {
		Unit    string        `flag:"unit" desc:"systemd unit" default:"alona-core.service"`
		Lines   int           `flag:"lines" desc:"lines" default:"20"`
		MinDisk float64       `flag:"min-disk" desc:"percent" default:"10"`
		Timeout time.Duration `flag:"timeout" desc:"timeout" default:"5s"`
		Restart bool          `flag:"restart" desc:"restart service" default:"true"`
		Include []string      `flag:"include" desc:"paths" default:"/etc/alona,/var/lib/alona"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Unit != "alona-core.service" {
		t.Errorf("Unit = %q", p.Unit)
	}
	if p.Lines != 20 {
		t.Errorf("Lines = %d, want 20", p.Lines)
	}
	if p.MinDisk != 10 {
		t.Errorf("MinDisk = %f, want 10", p.MinDisk)
	}
	if p.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", p.Timeout)
	}
	if !p.Restart {
		t.Error("Restart = false, want true")
	}
	if len(p.Include) != 2 {
		t.Errorf("Include = %v", p.Include)
	}
}

func TestBindFlags_EmbeddedJSONOutput(t *testing.T) {
	type params struct {
		JSONOutput
		Config string `flag:"config" desc:"config file path"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse([]string{"--json"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !p.OutputJSON {
		t.Error("OutputJSON = false, want true after --json")
	}
}

type customBinder struct {
	Socket string
}

func (c *customBinder) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Socket, "socket", "/run/alona.sock", "socket path")
}

func TestBindFlags_FlagBinderField(t *testing.T) {
	type params struct {
		Connection customBinder
		Config     string `flag:"config" desc:"config file path"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flagSet.Parse([]string{"--socket", "/tmp/test.sock"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if p.Connection.Socket != "/tmp/test.sock" {
		t.Errorf("Socket = %q", p.Connection.Socket)
	}
}

func TestBindFlags_RejectsNonPointer(t *testing.T) {
	type params struct {
		Config string `flag:"config"`
	}

	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := BindFlags(params{}, flagSet)
	if err == nil {
		t.Fatal("expected error for non-pointer params")
	}
	if !strings.Contains(err.Error(), "pointer to a struct") {
		t.Errorf("error = %q", err)
	}
}

func TestBindFlags_UnsupportedType(t *testing.T) {
	type params struct {
		Bad map[string]string `flag:"bad"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	err := BindFlags(&p, flagSet)
	if err == nil {
		t.Fatal("expected error for unsupported field type")
	}
	if !strings.Contains(err.Error(), "unsupported type") {
		t.Errorf("error = %q", err)
	}
}

func TestBindFlags_BadDefault(t *testing.T) {
	type params struct {
		Lines int `flag:"lines" default:"not-a-number"`
	}

	var p params
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(&p, flagSet); err == nil {
		t.Fatal("expected error for unparseable default")
	}
}

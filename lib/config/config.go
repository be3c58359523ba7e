// Copyright 2026 The Alona Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the alona gateway
// tooling.
//
// Configuration is loaded from a single YAML file specified by:
//   - the --config flag passed to the command, or
//   - the ALONA_CONFIG environment variable, or
//   - /etc/alona/config.yaml (the installed default).
//
// There is no further discovery and no merging of multiple files. A
// gateway in the field must behave deterministically: one file, one
// source of truth, inspectable with cat.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the installer places the gateway configuration.
const DefaultPath = "/etc/alona/config.yaml"

// EnvVar names the environment variable that overrides DefaultPath.
const EnvVar = "ALONA_CONFIG"

// Config is the master configuration for the gateway tooling.
type Config struct {
	// Service identifies the managed backend service.
	Service ServiceConfig `yaml:"service"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Release configures the release store layout.
	Release ReleaseConfig `yaml:"release"`

	// Broker configures the local MQTT broker used by health checks.
	Broker BrokerConfig `yaml:"broker"`

	// Health configures check thresholds.
	Health HealthConfig `yaml:"health"`

	// Backup configures snapshot creation.
	Backup BackupConfig `yaml:"backup"`
}

// ServiceConfig identifies the systemd-managed backend service. The
// unit name and unix account are configuration, not constants: some
// installations run the generic "core" service, others the
// product-specific "alona-core".
type ServiceConfig struct {
	// Unit is the systemd unit name (e.g., "alona-core.service").
	Unit string `yaml:"unit"`

	// Account is the unix account the service runs as. Releases are
	// owned by root specifically so this account cannot modify them.
	Account string `yaml:"account"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Prefix is the deployment root. The release store lives at
	// <prefix>/releases with the current and previous symlinks
	// alongside it.
	Prefix string `yaml:"prefix"`

	// Data is the service's writable state directory (SQLite files,
	// spool). Included in backups.
	Data string `yaml:"data"`

	// Backups is where snapshot archives are written.
	Backups string `yaml:"backups"`

	// HistoryDB is the deployment history database file.
	HistoryDB string `yaml:"history_db"`
}

// ReleaseConfig configures the release store.
type ReleaseConfig struct {
	// EntryPoint is the path of the service executable relative to a
	// release directory (e.g., "bin/alona-core"). A release that does
	// not contain this file fails validation and is never activated.
	EntryPoint string `yaml:"entry_point"`
}

// BrokerConfig configures the MQTT broker connection for health checks.
type BrokerConfig struct {
	// Address is the broker URL (e.g., "tcp://127.0.0.1:1883").
	Address string `yaml:"address"`

	// Username is the broker account for the health check client.
	Username string `yaml:"username"`

	// PasswordFile is a file containing the broker password. Kept out
	// of the config file itself so the config can be world-readable.
	PasswordFile string `yaml:"password_file"`
}

// HealthConfig configures check thresholds.
type HealthConfig struct {
	// MinDiskPercent is the minimum free space (percent of the data
	// partition) below which the disk check fails. Zero means the
	// built-in default of 10.
	MinDiskPercent int `yaml:"min_disk_percent"`
}

// BackupConfig configures snapshot creation.
type BackupConfig struct {
	// Include lists the paths bundled into each snapshot. Empty
	// entries are rejected at validation time; missing paths fail the
	// backup, they are not silently skipped.
	Include []string `yaml:"include"`

	// AgeRecipients are age public keys (age1...). When set, snapshots
	// are encrypted to all recipients so off-site copies are safe on
	// untrusted storage.
	AgeRecipients []string `yaml:"age_recipients"`

	// IdentityFile is the age identity used to decrypt snapshots on
	// restore. Only needed when AgeRecipients is set.
	IdentityFile string `yaml:"identity_file"`
}

// Default returns the configuration for a standard gateway install.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Unit:    "alona-core.service",
			Account: "alona",
		},
		Paths: PathsConfig{
			Prefix:    "/opt/alona",
			Data:      "/var/lib/alona",
			Backups:   "/var/backups/alona",
			HistoryDB: "/var/lib/alona/deploy-history.db",
		},
		Release: ReleaseConfig{
			EntryPoint: "bin/alona-core",
		},
		Broker: BrokerConfig{
			Address: "tcp://127.0.0.1:1883",
		},
		Health: HealthConfig{
			MinDiskPercent: 10,
		},
		Backup: BackupConfig{
			Include: []string{"/var/lib/alona", "/etc/alona", "/etc/mosquitto"},
		},
	}
}

// Resolve determines the config file path from the --config flag value
// (may be empty), the ALONA_CONFIG environment variable, or the
// installed default, in that order, and loads it. When no file exists
// at the installed default and neither override is set, Resolve
// returns Default() so the tooling works on a freshly imaged host.
func Resolve(flagValue string) (*Config, error) {
	path := flagValue
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		if _, err := os.Stat(DefaultPath); os.IsNotExist(err) {
			return Default(), nil
		}
		path = DefaultPath
	}
	return Load(path)
}

// Load reads and validates the configuration file at path. Values not
// present in the file keep their Default() settings.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would make every
// operation fail. Messages name the offending key so the operator can
// fix the file without reading source code.
func (c *Config) Validate() error {
	if c.Service.Unit == "" {
		return fmt.Errorf("service.unit must not be empty")
	}
	if c.Paths.Prefix == "" {
		return fmt.Errorf("paths.prefix must not be empty")
	}
	if !filepath.IsAbs(c.Paths.Prefix) {
		return fmt.Errorf("paths.prefix must be absolute, got %q", c.Paths.Prefix)
	}
	if c.Release.EntryPoint == "" {
		return fmt.Errorf("release.entry_point must not be empty")
	}
	if filepath.IsAbs(c.Release.EntryPoint) {
		return fmt.Errorf("release.entry_point must be relative to the release directory, got %q", c.Release.EntryPoint)
	}
	if c.Health.MinDiskPercent < 0 || c.Health.MinDiskPercent > 100 {
		return fmt.Errorf("health.min_disk_percent must be between 0 and 100, got %d", c.Health.MinDiskPercent)
	}
	for i, include := range c.Backup.Include {
		if include == "" {
			return fmt.Errorf("backup.include[%d] must not be empty", i)
		}
	}
	return nil
}

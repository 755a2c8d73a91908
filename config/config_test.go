// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := Default()
	cfg.TokenFile = "/tmp/token"
	cfg.LocationID = "loc-1"
	cfg.DeviceID = "dev-1"
	return cfg
}

func TestValidateResolvesDerivedValues(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Location() == nil || cfg.Location().String() != "Asia/Singapore" {
		t.Fatalf("Location() = %v, want Asia/Singapore", cfg.Location())
	}
	if cfg.BaseDelay() != time.Second {
		t.Fatalf("BaseDelay() = %v, want 1s", cfg.BaseDelay())
	}
	if cfg.MaxDelay() != 30*time.Second {
		t.Fatalf("MaxDelay() = %v, want 30s", cfg.MaxDelay())
	}
	if cfg.PageDelay() != 100*time.Millisecond {
		t.Fatalf("PageDelay() = %v, want 100ms", cfg.PageDelay())
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Mars/Olympus_Mons"
	cfg.Fetch.PageLimit = 0
	cfg.Fetch.MaxAttempts = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed on a config missing credentials")
	}

	for _, fragment := range []string{
		"token_file",
		"location_id",
		"device_id",
		"timezone",
		"page_limit",
		"max_attempts",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error %q does not mention %s", err, fragment)
		}
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Fetch.BaseDelay = "soon"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate accepted base_delay \"soon\"")
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extractor.yaml")
	content := `
token_file: /secrets/st-token
location_id: loc-9
device_id: dev-9
timezone: UTC
fetch:
  page_limit: 50
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Fetch.PageLimit != 50 {
		t.Fatalf("PageLimit = %d, want 50", cfg.Fetch.PageLimit)
	}
	// Untouched values keep their defaults.
	if cfg.Fetch.MaxAttempts != 3 {
		t.Fatalf("MaxAttempts = %d, want default 3", cfg.Fetch.MaxAttempts)
	}
	if cfg.Output.Prefix != "smartthings_history" {
		t.Fatalf("Prefix = %q, want default", cfg.Output.Prefix)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Location() != time.UTC {
		t.Fatalf("Location() = %v, want UTC", cfg.Location())
	}
}

func TestLoadWithoutEnvReturnsDefaults(t *testing.T) {
	t.Setenv("EXTRACTOR_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fetch.BaseURL != "https://api.smartthings.com" {
		t.Fatalf("BaseURL = %q, want default", cfg.Fetch.BaseURL)
	}
}

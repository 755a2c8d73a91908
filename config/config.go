// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the extractor.
//
// Configuration is loaded from a single YAML file specified by:
//   - EXTRACTOR_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
// Individual values can be overridden by command-line flags, which the
// CLI applies after loading and before Validate.
//
// Validate is the preflight gate: it resolves the timezone, parses the
// duration knobs, and reports every problem at once. It must pass
// before the first network request is issued.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for a history extraction run.
type Config struct {
	// TokenFile is the path to a file containing the SmartThings
	// bearer token, or "-" to read the token from stdin.
	TokenFile string `yaml:"token_file"`

	// LocationID identifies the SmartThings location.
	LocationID string `yaml:"location_id"`

	// DeviceID identifies the device whose history is extracted.
	DeviceID string `yaml:"device_id"`

	// Timezone is the IANA zone name that all event timestamps are
	// resolved to (e.g. "Asia/Singapore", "UTC").
	Timezone string `yaml:"timezone"`

	// Rules is the path to a JSONC trigger rules file. Empty means
	// the built-in dryer rule set.
	Rules string `yaml:"rules"`

	// Fetch configures the paginated history fetch.
	Fetch FetchConfig `yaml:"fetch"`

	// Output configures where and how results are written.
	Output OutputConfig `yaml:"output"`

	// location is resolved from Timezone during Validate.
	location *time.Location

	// parsed duration knobs, populated during Validate.
	baseDelay time.Duration
	maxDelay  time.Duration
	pageDelay time.Duration
	timeout   time.Duration
}

// FetchConfig configures pagination, retry, and pacing.
type FetchConfig struct {
	// BaseURL is the API root. Default: https://api.smartthings.com
	BaseURL string `yaml:"base_url"`

	// PageLimit is the number of records requested per page.
	PageLimit int `yaml:"page_limit"`

	// OldestFirst requests history in ascending time order.
	OldestFirst bool `yaml:"oldest_first"`

	// MaxAttempts bounds the requests issued for a single page,
	// including the first. Retries apply to 429 responses, 5xx
	// responses, and transport failures.
	MaxAttempts int `yaml:"max_attempts"`

	// BaseDelay is the first retry backoff (doubled per attempt).
	BaseDelay string `yaml:"base_delay"`

	// MaxDelay caps the backoff growth.
	MaxDelay string `yaml:"max_delay"`

	// PageDelay is the courtesy pause between successful pages.
	PageDelay string `yaml:"page_delay"`

	// Timeout bounds each individual HTTP request.
	Timeout string `yaml:"timeout"`
}

// OutputConfig configures result files.
type OutputConfig struct {
	// Dir is the directory output files are written into.
	Dir string `yaml:"dir"`

	// Prefix is the first component of every output file name.
	Prefix string `yaml:"prefix"`

	// CompressRaw writes the raw JSON archive zstd-compressed.
	CompressRaw bool `yaml:"compress_raw"`

	// CBORArchive additionally writes the normalized events as a
	// deterministic CBOR archive.
	CBORArchive bool `yaml:"cbor_archive"`
}

// Default returns the default configuration. These defaults mirror the
// knobs the extractor has always used: 200-record pages, three
// attempts per page with 1s→30s backoff, 100ms page pacing, and the
// Asia/Singapore reporting zone.
func Default() *Config {
	return &Config{
		Timezone: "Asia/Singapore",
		Fetch: FetchConfig{
			BaseURL:     "https://api.smartthings.com",
			PageLimit:   200,
			OldestFirst: false,
			MaxAttempts: 3,
			BaseDelay:   "1s",
			MaxDelay:    "30s",
			PageDelay:   "100ms",
			Timeout:     "30s",
		},
		Output: OutputConfig{
			Dir:    ".",
			Prefix: "smartthings_history",
		},
	}
}

// Load loads configuration from the EXTRACTOR_CONFIG environment
// variable. If the variable is not set, the defaults are returned so
// that a run can be configured entirely by flags.
func Load() (*Config, error) {
	configPath := os.Getenv("EXTRACTOR_CONFIG")
	if configPath == "" {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merged over
// the defaults. The config file is the single source of truth;
// environment variables do not override individual values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors and resolves derived
// values (timezone location, duration knobs). Every problem is
// reported, not just the first. Validate must succeed before any
// network activity starts.
func (c *Config) Validate() error {
	var errs []error

	if c.TokenFile == "" {
		errs = append(errs, fmt.Errorf("token_file is required"))
	}
	if c.LocationID == "" {
		errs = append(errs, fmt.Errorf("location_id is required"))
	}
	if c.DeviceID == "" {
		errs = append(errs, fmt.Errorf("device_id is required"))
	}

	if c.Timezone == "" {
		errs = append(errs, fmt.Errorf("timezone is required"))
	} else {
		location, err := time.LoadLocation(c.Timezone)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
		} else {
			c.location = location
		}
	}

	if c.Fetch.BaseURL == "" {
		errs = append(errs, fmt.Errorf("fetch.base_url is required"))
	}
	if c.Fetch.PageLimit <= 0 {
		errs = append(errs, fmt.Errorf("fetch.page_limit must be positive, got %d", c.Fetch.PageLimit))
	}
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetch.max_attempts must be at least 1, got %d", c.Fetch.MaxAttempts))
	}

	parse := func(name, value string, out *time.Duration) {
		d, err := time.ParseDuration(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, value, err))
			return
		}
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %s", name, value))
			return
		}
		*out = d
	}
	parse("fetch.base_delay", c.Fetch.BaseDelay, &c.baseDelay)
	parse("fetch.max_delay", c.Fetch.MaxDelay, &c.maxDelay)
	parse("fetch.page_delay", c.Fetch.PageDelay, &c.pageDelay)
	parse("fetch.timeout", c.Fetch.Timeout, &c.timeout)

	if c.Output.Dir == "" {
		errs = append(errs, fmt.Errorf("output.dir is required"))
	}
	if c.Output.Prefix == "" {
		errs = append(errs, fmt.Errorf("output.prefix is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Location returns the resolved *time.Location. Only valid after a
// successful Validate.
func (c *Config) Location() *time.Location { return c.location }

// BaseDelay returns the parsed first retry backoff. Only valid after
// a successful Validate.
func (c *Config) BaseDelay() time.Duration { return c.baseDelay }

// MaxDelay returns the parsed backoff cap. Only valid after a
// successful Validate.
func (c *Config) MaxDelay() time.Duration { return c.maxDelay }

// PageDelay returns the parsed inter-page pause. Only valid after a
// successful Validate.
func (c *Config) PageDelay() time.Duration { return c.pageDelay }

// Timeout returns the parsed per-request timeout. Only valid after a
// successful Validate.
func (c *Config) Timeout() time.Duration { return c.timeout }

// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

// smartthings-extract pulls the complete event history of one
// SmartThings device, derives operational cycles from the event
// stream, and writes the results as CSV, a raw JSON archive, and an
// optional CBOR archive.
//
// Configuration comes from a YAML file (--config or the
// EXTRACTOR_CONFIG environment variable) with individual knobs
// overridable by flags. The bearer token is never passed on the
// command line; it is read from a file or stdin.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/Caisho/smartthings-api-extractor/config"
	"github.com/Caisho/smartthings-api-extractor/cycle"
	"github.com/Caisho/smartthings-api-extractor/lib/clock"
	"github.com/Caisho/smartthings-api-extractor/lib/secret"
	"github.com/Caisho/smartthings-api-extractor/lib/version"
	"github.com/Caisho/smartthings-api-extractor/report"
	"github.com/Caisho/smartthings-api-extractor/smartthings"
	"github.com/Caisho/smartthings-api-extractor/trigger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath   string
		tokenFile    string
		locationID   string
		deviceID     string
		timezone     string
		limit        int
		oldestFirst  bool
		rulesPath    string
		outputDir    string
		outputPrefix string
		compressRaw  bool
		cborArchive  bool
		logLevel     string
	)

	flagSet := pflag.NewFlagSet("smartthings-extract", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "YAML config file (default: $EXTRACTOR_CONFIG if set)")
	flagSet.StringVar(&tokenFile, "token-file", "", "bearer token file, or \"-\" for stdin")
	flagSet.StringVar(&locationID, "location", "", "SmartThings location ID")
	flagSet.StringVar(&deviceID, "device", "", "SmartThings device ID")
	flagSet.StringVar(&timezone, "timezone", "", "IANA timezone for timestamps and file names")
	flagSet.IntVar(&limit, "limit", 0, "records per history page")
	flagSet.BoolVar(&oldestFirst, "oldest-first", false, "fetch oldest records first")
	flagSet.StringVar(&rulesPath, "rules", "", "JSONC trigger rules file (default: built-in dryer rules)")
	flagSet.StringVar(&outputDir, "output-dir", "", "directory for output files")
	flagSet.StringVar(&outputPrefix, "output-prefix", "", "output file name prefix")
	flagSet.BoolVar(&compressRaw, "compress-raw", false, "zstd-compress the raw JSON archive")
	flagSet.BoolVar(&cborArchive, "cbor", false, "also write a CBOR archive of normalized events")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("smartthings-extract")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level, err := parseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Flags override the config file; only flags the user actually
	// set count, so config values survive untouched defaults.
	if flagSet.Changed("token-file") {
		cfg.TokenFile = tokenFile
	}
	if flagSet.Changed("location") {
		cfg.LocationID = locationID
	}
	if flagSet.Changed("device") {
		cfg.DeviceID = deviceID
	}
	if flagSet.Changed("timezone") {
		cfg.Timezone = timezone
	}
	if flagSet.Changed("limit") {
		cfg.Fetch.PageLimit = limit
	}
	if flagSet.Changed("oldest-first") {
		cfg.Fetch.OldestFirst = oldestFirst
	}
	if flagSet.Changed("rules") {
		cfg.Rules = rulesPath
	}
	if flagSet.Changed("output-dir") {
		cfg.Output.Dir = outputDir
	}
	if flagSet.Changed("output-prefix") {
		cfg.Output.Prefix = outputPrefix
	}
	if flagSet.Changed("compress-raw") {
		cfg.Output.CompressRaw = compressRaw
	}
	if flagSet.Changed("cbor") {
		cfg.Output.CBORArchive = cborArchive
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	rules := trigger.Default()
	if cfg.Rules != "" {
		rules, err = trigger.ReadFile(cfg.Rules)
		if err != nil {
			return err
		}
	}
	logger.Debug("trigger rules loaded", "name", rules.Name,
		"start", len(rules.Start), "end", len(rules.End), "ignore", len(rules.Ignore))

	token, err := secret.ReadFromPath(cfg.TokenFile)
	if err != nil {
		return err
	}
	defer token.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return extract(ctx, logger, cfg, rules, token)
}

// extract runs the fetch → normalize → detect → summarize → write
// pipeline. Output files are only written after every earlier stage
// has succeeded.
func extract(ctx context.Context, logger *slog.Logger, cfg *config.Config, rules trigger.Set, token *secret.Buffer) error {
	client, err := smartthings.NewClient(smartthings.ClientConfig{
		BaseURL:    cfg.Fetch.BaseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: cfg.Timeout()},
		Logger:     logger,
		Retry: smartthings.RetryPolicy{
			MaxAttempts: cfg.Fetch.MaxAttempts,
			BaseDelay:   cfg.BaseDelay(),
			MaxDelay:    cfg.MaxDelay(),
			Jitter:      smartthings.EqualJitter,
		},
		Clock:     clock.Real(),
		PageDelay: cfg.PageDelay(),
	})
	if err != nil {
		return err
	}

	records, err := client.FetchDeviceHistory(ctx, smartthings.HistoryQuery{
		LocationID:  cfg.LocationID,
		DeviceID:    cfg.DeviceID,
		Limit:       cfg.Fetch.PageLimit,
		OldestFirst: cfg.Fetch.OldestFirst,
	})
	if err != nil {
		return err
	}

	normalized := cycle.Normalize(records, cfg.Location())
	logger.Info("normalized history",
		"records", len(records),
		"events", len(normalized.Events),
		"dropped", normalized.Dropped,
		"duplicates", normalized.Duplicates)

	detected, err := cycle.Detect(normalized.Events, rules)
	if err != nil {
		return err
	}
	stats := cycle.Summarize(detected.Cycles)
	logger.Info("detected cycles",
		"complete", stats.Complete,
		"incomplete", stats.Incomplete,
		"duplicate_starts", detected.DuplicateStarts,
		"ignored", detected.Ignored)

	writer := &report.Writer{
		Dir:         cfg.Output.Dir,
		Prefix:      cfg.Output.Prefix,
		Location:    cfg.Location(),
		CompressRaw: cfg.Output.CompressRaw,
		CBORArchive: cfg.Output.CBORArchive,
		Logger:      logger,
	}
	manifest, err := writer.WriteAll(records, normalized.Events, detected.Cycles)
	if err != nil {
		return err
	}

	summary := report.Summary{
		Records:         len(records),
		Dropped:         normalized.Dropped,
		Duplicates:      normalized.Duplicates,
		Events:          len(normalized.Events),
		Cycles:          detected.Cycles,
		DuplicateStarts: detected.DuplicateStarts,
		Ignored:         detected.Ignored,
		Stats:           stats,
		Files:           manifest.Files,
	}
	if len(normalized.Events) > 0 {
		summary.From = normalized.Events[0].Time
		summary.To = normalized.Events[len(normalized.Events)-1].Time
	}
	fmt.Println(report.Render(summary))
	return nil
}

// loadConfig resolves the configuration source: an explicit --config
// path wins, then the EXTRACTOR_CONFIG environment variable, then
// built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func parseLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", name)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `smartthings-extract: device history extraction and cycle detection.

Fetches the full event history of one SmartThings device through the
paginated history API, normalizes it into a chronological event
stream, derives operational cycles (e.g. dryer loads) from trigger
rules, and writes CSV, raw JSON, and optional CBOR outputs with a
console summary.

Configuration is YAML (--config, or the EXTRACTOR_CONFIG environment
variable); every flag below overrides its config counterpart. The
bearer token is read from --token-file (use "-" for stdin), never
from a flag or the environment.

Usage:
  smartthings-extract [flags]

Flags:
%s`, flagSet.FlagUsages())
}

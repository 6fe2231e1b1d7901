package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing one YAML file per source"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./strike-comb.db" description:"SQLite database file"`

	// HTTP surface
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port (empty disables the server)"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://feeds.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Serve        bool   `long:"serve" env:"SERVE" description:"Keep serving HTTP after the run finishes"`

	// Scheduling
	CompletionThreshold int      `long:"completion-threshold" env:"COMPLETION_THRESHOLD" default:"1" description:"Fetch cycles per source before the run may complete"`
	RunMinutes          int      `long:"run-minutes" env:"RUN_MINUTES" default:"0" description:"Stop the run after this many minutes (0 runs until complete)"`
	ProgressInterval    int      `long:"progress-interval" env:"PROGRESS_INTERVAL" default:"30" description:"Seconds between progress reports (0 disables)"`
	MaxRetries          int      `long:"max-retries" env:"MAX_RETRIES" default:"2" description:"HTTP retries on transient failures"`
	TrackingPrefixes    []string `long:"tracking-prefix" env:"TRACKING_PREFIXES" env-delim:"," description:"Query parameter prefixes dropped from URLs (repeatable)"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Strike Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Athens)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := parse(os.Args[1:])
	if err != nil || cfg == nil {
		return cfg, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.CompletionThreshold < 1 {
		return nil, fmt.Errorf("completion threshold must be at least 1, got %d", raw.CompletionThreshold)
	}
	if raw.RunMinutes < 0 || raw.ProgressInterval < 0 || raw.MaxRetries < 0 {
		return nil, fmt.Errorf("run minutes, progress interval and max retries must be non-negative")
	}

	return &Cfg{
		SourcesDir:          raw.SourcesDir,
		DBPath:              raw.DBPath,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		APIAccessKey:        raw.APIAccessKey,
		Serve:               raw.Serve,
		CompletionThreshold: raw.CompletionThreshold,
		RunMinutes:          raw.RunMinutes,
		ProgressInterval:    raw.ProgressInterval,
		MaxRetries:          raw.MaxRetries,
		TrackingPrefixes:    normalizePrefixes(raw.TrackingPrefixes),
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}, nil
}

// normalizePrefixes returns nil when no prefix was configured so callers fall
// back to the built-in list.
func normalizePrefixes(values []string) []string {
	var prefixes []string
	for _, value := range values {
		if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
			prefixes = append(prefixes, value)
		}
	}
	return prefixes
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}

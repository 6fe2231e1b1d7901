package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	defaultRefreshInterval = 300 // seconds
	defaultProcessCooldown = 1   // seconds
	defaultTimeout         = 10  // seconds
)

// ConfigCache is the source registry: one YAML file per source in sourcesDir.
type ConfigCache struct {
	sourcesDir string
	cache      map[string]*Config
	mu         sync.RWMutex
}

func NewConfigCache(sourcesDir string) *ConfigCache {
	return &ConfigCache{
		sourcesDir: sourcesDir,
		cache:      make(map[string]*Config),
	}
}

// Run loads every source file. A file that fails to parse or validate is
// skipped with a warning so one broken source never blocks the others.
func (cc *ConfigCache) Run() error {
	if _, err := os.Stat(cc.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(cc.sourcesDir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		config, err := cc.loadFile(name, file)
		if err != nil {
			slog.Warn("Source excluded", "source", name, "file", file, "error", err)
			continue
		}

		slog.Debug("Configuration loaded",
			"source", name,
			"enabled", config.Settings.Enabled,
			"refresh_interval", config.Settings.RefreshInterval,
			"process_cooldown", config.Settings.ProcessCooldown)
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(name string) (*Config, error) {
	file := filepath.Join(cc.sourcesDir, name+".yml")
	if _, err := os.Stat(file); os.IsNotExist(err) {
		file = filepath.Join(cc.sourcesDir, name+".yaml")
	}
	return cc.loadFile(name, file)
}

func (cc *ConfigCache) loadFile(name, file string) (*Config, error) {
	sourceConfig, err := cc.parseConfig(file)
	if err != nil {
		return nil, err
	}

	sourceConfig.Name = name

	if err := cc.validateConfig(sourceConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", file, err)
	}

	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.cache[sourceConfig.Name] = sourceConfig

	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfig(name string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	sourceConfig, ok := cc.cache[name]
	if !ok {
		return nil, fmt.Errorf("source config with name '%s' not found", name)
	}
	return sourceConfig, nil
}

func (cc *ConfigCache) GetConfigs() map[string]*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configsCopy := make(map[string]*Config, len(cc.cache))
	for k, v := range cc.cache {
		configsCopy[k] = v
	}
	return configsCopy
}

// GetEnabledConfigs returns enabled sources ordered by name.
func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*Config, 0, len(cc.cache))
	for _, v := range cc.cache {
		if v.Settings.Enabled {
			enabled = append(enabled, v)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	// Defaults go in before decoding so an explicit 0 in the file survives.
	sourceConfig := Config{
		Settings: ConfigSettings{
			Enabled:         true,
			RefreshInterval: defaultRefreshInterval,
			ProcessCooldown: defaultProcessCooldown,
			Timeout:         defaultTimeout,
			Format:          FormatAuto,
		},
	}
	if err := yaml.Unmarshal(data, &sourceConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &sourceConfig, nil
}

func (cc *ConfigCache) validateConfig(sourceConfig *Config) error {
	if sourceConfig == nil {
		return fmt.Errorf("sourceConfig is nil")
	}
	if sourceConfig.Name == "" {
		return fmt.Errorf("source name is required")
	}
	if sourceConfig.URL == "" {
		return fmt.Errorf("source URL is required")
	}

	u, err := url.Parse(sourceConfig.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("source URL must be an absolute http(s) URL: %s", sourceConfig.URL)
	}

	nonNegativeFields := map[string]int{
		"refresh interval": sourceConfig.Settings.RefreshInterval,
		"process cooldown": sourceConfig.Settings.ProcessCooldown,
		"timeout":          sourceConfig.Settings.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}
	if sourceConfig.Settings.MinRequestInterval < 0 {
		return fmt.Errorf("min request interval must be non-negative")
	}

	switch sourceConfig.Settings.Format {
	case "", FormatAuto, FormatRSS, FormatSitemap:
	default:
		return fmt.Errorf("unknown format: %s", sourceConfig.Settings.Format)
	}

	for i, filter := range sourceConfig.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

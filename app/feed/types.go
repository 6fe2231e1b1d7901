package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// Item is one candidate discovered in a source's feed. Only Link is required;
// everything else is best-effort metadata from the RSS item or sitemap entry.
type Item struct {
	Link        string
	Title       string
	Description string
	PublishedAt *time.Time
	UpdatedAt   *time.Time // sitemap <lastmod>
	Language    string
	SourceName  string   // publication name from the channel or news:name
	Authors     []string // "email (name)" or "name"
	Categories  []string
	Keywords    []string
}

// Configuration types

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Country  string         `yaml:"country"`
	Settings ConfigSettings `yaml:"settings"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigSettings struct {
	Enabled            bool    `yaml:"enabled"`
	RefreshInterval    int     `yaml:"refresh_interval"`     // seconds
	ProcessCooldown    int     `yaml:"process_cooldown"`     // seconds between two processed jobs
	Timeout            int     `yaml:"timeout"`              // seconds
	MinRequestInterval float64 `yaml:"min_request_interval"` // seconds between HTTP requests to this source
	Format             string  `yaml:"format"`               // auto, rss or sitemap
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

const (
	FormatAuto    = "auto"
	FormatRSS     = "rss"
	FormatSitemap = "sitemap"
)

func (s ConfigSettings) GetRefreshInterval() time.Duration {
	return time.Duration(s.RefreshInterval) * time.Second
}

func (s ConfigSettings) GetProcessCooldown() time.Duration {
	return time.Duration(s.ProcessCooldown) * time.Second
}

func (s ConfigSettings) GetTimeout() time.Duration {
	if s.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Duration(s.Timeout) * time.Second
}

func (s ConfigSettings) GetMinRequestInterval() time.Duration {
	if s.MinRequestInterval <= 0 {
		return 0
	}
	return time.Duration(s.MinRequestInterval * float64(time.Second))
}

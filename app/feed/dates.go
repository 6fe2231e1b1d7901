package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Day-first layouts are tried before dateparse, which assumes month-first
// for ambiguous numeric dates. European sources write 04/08/2025 for August.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 GMT",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// ParseDate parses the date formats seen in news feeds and sitemaps.
// It returns nil when nothing matches.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	if t, err := dateparse.ParseAny(raw); err == nil {
		return &t
	}

	return nil
}

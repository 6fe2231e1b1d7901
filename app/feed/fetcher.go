package feed

import (
	"context"
	"fmt"
	"log/slog"
)

// Fetcher downloads a source's endpoint through its session and returns the
// candidate items found there.
type Fetcher struct {
	parser *Parser
}

func NewFetcher(parser *Parser) *Fetcher {
	if parser == nil {
		parser = NewParser()
	}
	return &Fetcher{parser: parser}
}

func (f *Fetcher) Fetch(ctx context.Context, sourceConfig *Config, session *Session) ([]Item, error) {
	resp, err := session.Get(ctx, sourceConfig.URL)
	if err != nil {
		return nil, err
	}

	var items []Item
	if IsSitemap(sourceConfig) {
		items, err = ParseSitemap(resp.Body)
		if err != nil || len(items) == 0 {
			// Some "news.xml" endpoints are plain RSS.
			slog.Debug("Sitemap empty, trying feed parser", "source", sourceConfig.Name, "error", err)
			items, err = f.parseFeed(resp.Body)
		}
	} else {
		items, err = f.parseFeed(resp.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", sourceConfig.URL, err)
	}

	for i := range items {
		if items[i].SourceName == "" {
			items[i].SourceName = sourceConfig.Name
		}
	}

	slog.Debug("Source fetched", "source", sourceConfig.Name, "items", len(items), "bytes", len(resp.Body))

	return items, nil
}

func (f *Fetcher) parseFeed(data []byte) ([]Item, error) {
	_, items, err := f.parser.Run(data)
	return items, err
}

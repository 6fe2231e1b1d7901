package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parser turns RSS/Atom/JSON feed payloads into candidate items.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       parsed.Title,
		Link:        parsed.Link,
		Description: parsed.Description,
		Language:    parsed.Language,
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}
		normalized := p.normalizeItem(entry)
		normalized.SourceName = metadata.Title
		normalized.Language = metadata.Language
		items = append(items, normalized)
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(entry *gofeed.Item) Item {
	normalized := Item{
		Title:       strings.TrimSpace(entry.Title),
		Link:        strings.TrimSpace(entry.Link),
		Description: strings.TrimSpace(entry.Description),
		Categories:  entry.Categories,
		Authors:     p.extractAuthors(entry),
	}

	// Some feeds only carry the article URL in the guid.
	if normalized.Link == "" && isURL(entry.GUID) {
		normalized.Link = strings.TrimSpace(entry.GUID)
	}

	if entry.PublishedParsed != nil {
		published := *entry.PublishedParsed
		normalized.PublishedAt = &published
	} else if entry.Published != "" {
		normalized.PublishedAt = ParseDate(entry.Published)
	}

	if entry.UpdatedParsed != nil {
		updated := *entry.UpdatedParsed
		normalized.UpdatedAt = &updated
	}

	return normalized
}

func (p *Parser) extractAuthors(entry *gofeed.Item) []string {
	var authors []string

	if len(entry.Authors) > 0 {
		for _, author := range entry.Authors {
			if author != nil {
				if authorStr := formatAuthor(author.Name, author.Email); authorStr != "" {
					authors = append(authors, authorStr)
				}
			}
		}
	} else if entry.Author != nil {
		if authorStr := formatAuthor(entry.Author.Name, entry.Author.Email); authorStr != "" {
			authors = append(authors, authorStr)
		}
	}

	if len(authors) == 0 && entry.DublinCoreExt != nil {
		for _, creator := range entry.DublinCoreExt.Creator {
			if creator = strings.TrimSpace(creator); creator != "" {
				authors = append(authors, creator)
			}
		}
	}

	return authors
}

func formatAuthor(name, email string) string {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name != "" && email != "" {
		return fmt.Sprintf("%s (%s)", email, name)
	} else if name != "" {
		return name
	} else if email != "" {
		return email
	}

	return ""
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
)

type sitemapURLSet struct {
	URLs []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string       `xml:"loc"`
	LastMod string       `xml:"lastmod"`
	News    *sitemapNews `xml:"news"`
}

type sitemapNews struct {
	Publication struct {
		Name     string `xml:"name"`
		Language string `xml:"language"`
	} `xml:"publication"`
	PublicationDate string `xml:"publication_date"`
	Title           string `xml:"title"`
	Keywords        string `xml:"keywords"`
}

// IsSitemap reports whether a source should be read as a news sitemap.
// With format auto, URLs containing "sitemap" or ending in /news.xml are.
func IsSitemap(sourceConfig *Config) bool {
	switch sourceConfig.Settings.Format {
	case FormatSitemap:
		return true
	case FormatRSS:
		return false
	}

	lower := strings.ToLower(sourceConfig.URL)
	return strings.Contains(lower, "sitemap") || strings.HasSuffix(lower, "/news.xml")
}

// ParseSitemap reads a Google News sitemap. Element names are matched without
// their namespace, so both <news:title> and <title> inside <news:news> work.
func ParseSitemap(data []byte) ([]Item, error) {
	var set sitemapURLSet
	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Strict = false
	if err := decoder.Decode(&set); err != nil {
		return nil, fmt.Errorf("failed to parse sitemap: %w", err)
	}

	items := make([]Item, 0, len(set.URLs))
	for _, entry := range set.URLs {
		link := strings.TrimSpace(entry.Loc)
		if link == "" {
			continue
		}

		item := Item{
			Link:      link,
			UpdatedAt: ParseDate(entry.LastMod),
			Language:  "en",
		}

		if entry.News != nil {
			item.Title = strings.TrimSpace(entry.News.Title)
			item.SourceName = strings.TrimSpace(entry.News.Publication.Name)
			if lang := strings.TrimSpace(entry.News.Publication.Language); lang != "" {
				item.Language = lang
			}
			item.PublishedAt = ParseDate(entry.News.PublicationDate)
			item.Keywords = splitKeywords(entry.News.Keywords)
		}

		items = append(items, item)
	}

	return items, nil
}

func splitKeywords(raw string) []string {
	var keywords []string
	for _, keyword := range strings.Split(raw, ",") {
		if keyword = strings.TrimSpace(keyword); keyword != "" {
			keywords = append(keywords, keyword)
		}
	}
	return keywords
}

package feed

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Article is what the extractor pulls out of one article page.
type Article struct {
	Title       string
	Author      string
	Content     string // readable HTML
	Text        string // plain text of Content
	Description string
	Keywords    []string
	Language    string
	PublishedAt *time.Time
}

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

func (e *ContentExtractor) Run(data []byte, pageURL string) (*Article, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	article := &Article{
		Title:       strings.TrimSpace(metaContent(doc, "meta[property='og:title']")),
		Author:      strings.TrimSpace(metaContent(doc, "meta[name='author']")),
		Description: strings.TrimSpace(firstNonEmpty(metaContent(doc, "meta[name='description']"), metaContent(doc, "meta[property='og:description']"))),
		Keywords:    splitKeywords(firstNonEmpty(metaContent(doc, "meta[name='keywords']"), metaContent(doc, "meta[name='news_keywords']"))),
		Language:    strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
		PublishedAt: ParseDate(firstNonEmpty(metaContent(doc, "meta[property='article:published_time']"), doc.Find("time[datetime]").First().AttrOr("datetime", ""))),
	}

	parsedURL, _ := url.Parse(pageURL)
	readable, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err == nil {
		article.Content = readable.Content
		article.Text = strings.TrimSpace(readable.TextContent)
		if article.Title == "" {
			article.Title = strings.TrimSpace(readable.Title)
		}
		if article.Author == "" {
			article.Author = strings.TrimSpace(readable.Byline)
		}
		if article.Description == "" {
			article.Description = strings.TrimSpace(readable.Excerpt)
		}
	} else {
		slog.Debug("Readability failed, using paragraphs", "url", pageURL, "error", err)
	}

	if article.Text == "" {
		article.Text = paragraphText(doc)
	}
	if article.Title == "" {
		article.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	if article.Text == "" && article.Title == "" {
		return nil, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"url", pageURL,
		"title", article.Title,
		"content_length", len(article.Text))

	return article, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return doc.Find(selector).First().AttrOr("content", "")
}

func paragraphText(doc *goquery.Document) string {
	var paragraphs []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ContentHash identifies an article by its text, independent of its URL.
func ContentHash(title, body string) string {
	hash := sha256.Sum256([]byte(strings.TrimSpace(title) + "\n" + strings.TrimSpace(body)))
	return hex.EncodeToString(hash[:])
}

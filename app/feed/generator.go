package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/strike-comb/app/database"
)

// Generator renders the stored articles of one source as RSS 2.0.
type Generator struct {
	baseURL string
	version string
}

func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		version: version,
	}
}

func (g *Generator) Run(sourceConfig *Config, articles []database.Article) (string, error) {
	if sourceConfig == nil {
		return "", fmt.Errorf("source config is nil")
	}

	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	title := sourceConfig.Name
	if sourceConfig.Country != "" {
		title = fmt.Sprintf("%s (%s)", sourceConfig.Name, sourceConfig.Country)
	}
	g.writeElement(&buf, "title", title, 4)
	g.writeElement(&buf, "link", sourceConfig.URL, 4)
	g.writeElement(&buf, "description", fmt.Sprintf("Relevant articles from %s", sourceConfig.URL), 4)

	if g.baseURL != "" {
		selfLink := fmt.Sprintf("%s/feeds/%s", g.baseURL, sourceConfig.Name)
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(selfLink)))
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(articles) > 0 {
		lastBuildDate = articleDate(articles[0])
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Strike-Comb/%s", cmp.Or(g.version, "dev")), 4)

	for _, article := range articles {
		g.writeItem(&buf, article)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, article database.Article) {
	buf.WriteString("    <item>\n")

	if article.URL != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", isURL(article.URL)))
		xml.EscapeText(buf, []byte(article.URL))
		buf.WriteString("</guid>\n")
	}

	g.writeElement(buf, "title", article.Title, 6)
	g.writeElement(buf, "link", article.URL, 6)
	g.writeElement(buf, "description", cmp.Or(article.Summary, "No description available"), 6)

	if article.Content != "" && article.Content != article.Summary {
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(strings.ReplaceAll(article.Content, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	g.writeElement(buf, "pubDate", articleDate(article).Format(time.RFC1123Z), 6)
	g.writeElement(buf, "author", article.Author, 6)

	for _, term := range article.MatchedTerms {
		g.writeElement(buf, "category", term, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func articleDate(article database.Article) time.Time {
	if article.PublishedAt != nil {
		return *article.PublishedAt
	}
	return article.CreatedAt
}

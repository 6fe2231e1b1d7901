package feed

import (
	"testing"
	"time"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <language>en-us</language>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <author>test@example.com (Test Author)</author>
      <category>Technology</category>
      <category>Programming</category>
    </item>
    <item>
      <title>Test Item 2</title>
      <guid isPermaLink="true">https://example.com/item2</guid>
      <dc:creator>Jane Doe</dc:creator>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(rssData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", metadata.Title)
	}
	if metadata.Link != "https://example.com" {
		t.Errorf("Expected link 'https://example.com', got: %s", metadata.Link)
	}
	if metadata.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", metadata.Language)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	item1 := items[0]
	if item1.Title != "Test Item 1" {
		t.Errorf("Expected title 'Test Item 1', got: %s", item1.Title)
	}
	if item1.Link != "https://example.com/item1" {
		t.Errorf("Expected link 'https://example.com/item1', got: %s", item1.Link)
	}
	if len(item1.Categories) != 2 {
		t.Errorf("Expected 2 categories, got: %d", len(item1.Categories))
	}
	if item1.SourceName != "Test Feed" {
		t.Errorf("Expected source name 'Test Feed', got: %s", item1.SourceName)
	}
	if item1.Language != "en-us" {
		t.Errorf("Expected language 'en-us', got: %s", item1.Language)
	}
	want := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	if item1.PublishedAt == nil || !item1.PublishedAt.Equal(want) {
		t.Errorf("Expected published %v, got %v", want, item1.PublishedAt)
	}
	if len(item1.Authors) != 1 {
		t.Errorf("Expected 1 author, got: %v", item1.Authors)
	}

	item2 := items[1]
	if item2.Link != "https://example.com/item2" {
		t.Errorf("Expected link from guid, got: %s", item2.Link)
	}
	if len(item2.Authors) != 1 || item2.Authors[0] != "Jane Doe" {
		t.Errorf("Expected author from dc:creator, got: %v", item2.Authors)
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T10:00:00Z</updated>
    <content type="html">Test content</content>
  </entry>
</feed>`

	parser := NewParser()
	metadata, items, err := parser.Run([]byte(atomData))

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if metadata.Title != "Test Atom Feed" {
		t.Errorf("Expected title 'Test Atom Feed', got: %s", metadata.Title)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}

	item := items[0]
	if item.Link != "https://example.com/entry1" {
		t.Errorf("Expected link 'https://example.com/entry1', got: %s", item.Link)
	}
	if item.UpdatedAt == nil {
		t.Error("Expected updated date")
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()
	_, _, err := parser.Run([]byte("invalid xml"))

	if err == nil {
		t.Error("Expected error for invalid XML")
	}
}

func TestFormatAuthor(t *testing.T) {
	tests := []struct {
		name, email, expected string
	}{
		{"Jane", "jane@example.com", "jane@example.com (Jane)"},
		{"Jane", "", "Jane"},
		{"", "jane@example.com", "jane@example.com"},
		{" ", " ", ""},
	}

	for _, tt := range tests {
		if got := formatAuthor(tt.name, tt.email); got != tt.expected {
			t.Errorf("formatAuthor(%q, %q) = %q, want %q", tt.name, tt.email, got, tt.expected)
		}
	}
}

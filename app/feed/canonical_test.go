package feed

import "testing"

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "URL with UTM parameters",
			input:    "https://example.com/article?utm_source=twitter&utm_medium=social&utm_campaign=test",
			expected: "https://example.com/article",
		},
		{
			name:     "URL with Facebook tracking",
			input:    "https://example.com/page?fbclid=IwAR123456789&other=keep",
			expected: "https://example.com/page?other=keep",
		},
		{
			name:     "URL with multiple tracking parameters",
			input:    "https://example.com/content?utm_source=email&fbclid=xyz789&ref=homepage&title=article",
			expected: "https://example.com/content?title=article",
		},
		{
			name:     "Tracking prefix matches longer keys",
			input:    "https://example.com/a?referrer=x&sourceid=y&id=1",
			expected: "https://example.com/a?id=1",
		},
		{
			name:     "Tracking keys are matched case-insensitively",
			input:    "https://example.com/a?UTM_Source=x&id=1",
			expected: "https://example.com/a?id=1",
		},
		{
			name:     "Parameters are sorted by key",
			input:    "https://example.com/clean?sort=date&page=1",
			expected: "https://example.com/clean?page=1&sort=date",
		},
		{
			name:     "Repeated keys keep all values in order",
			input:    "https://example.com/q?tag=b&tag=a",
			expected: "https://example.com/q?tag=a&tag=b",
		},
		{
			name:     "Scheme and host are lower-cased, path is not",
			input:    "HTTPS://News.Example.COM/World/Story",
			expected: "https://news.example.com/World/Story",
		},
		{
			name:     "Fragment and trailing slash are removed",
			input:    "https://example.com/story/#comments",
			expected: "https://example.com/story",
		},
		{
			name:     "Empty path",
			input:    "https://example.com",
			expected: "https://example.com",
		},
		{
			name:     "Root path",
			input:    "https://example.com/?utm_source=x",
			expected: "https://example.com",
		},
		{
			name:     "Port is kept",
			input:    "http://example.com:8080/a/",
			expected: "http://example.com:8080/a",
		},
		{
			name:     "Escaped path is preserved",
			input:    "https://example.com/a%20b/",
			expected: "https://example.com/a%20b",
		},
		{
			name:     "Non-ASCII path is kept as written",
			input:    "https://Example.com/ελλάδα/",
			expected: "https://example.com/ελλάδα",
		},
		{
			name:     "Percent-encoded path is kept as written",
			input:    "https://example.com/%CE%B5%CE%BB/",
			expected: "https://example.com/%CE%B5%CE%BB",
		},
		{
			name:     "Encoded slash in path",
			input:    "https://example.com/a%2Fb?id=1",
			expected: "https://example.com/a%2Fb?id=1",
		},
		{
			name:     "Scheme-relative link",
			input:    "//example.com/a/",
			expected: "//example.com/a",
		},
		{
			name:     "Query values are re-encoded",
			input:    "https://example.com/s?q=a+b&x=%C3%A9",
			expected: "https://example.com/s?q=a+b&x=%C3%A9",
		},
		{
			name:     "Surrounding whitespace",
			input:    "  https://example.com/a  ",
			expected: "https://example.com/a",
		},
		{
			name:     "Empty URL",
			input:    "",
			expected: "",
		},
		{
			name:     "Relative reference",
			input:    "not-a-valid-url",
			expected: "not-a-valid-url",
		},
		{
			name:     "Unparseable URL is returned trimmed",
			input:    " http://[::1/broken ",
			expected: "http://[::1/broken",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Canonicalize(tt.input, DefaultTrackingPrefixes)
			if result != tt.expected {
				t.Errorf("Canonicalize(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestCanonicalizeCustomPrefixes(t *testing.T) {
	got := Canonicalize("https://example.com/a?utm_source=x&session=1", []string{"session"})
	want := "https://example.com/a?utm_source=x"
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"https://Example.com/a/b/?z=1&a=2&utm_medium=x#top",
		"http://example.com",
		"https://example.com/s?q=a+b",
	}

	for _, input := range inputs {
		once := Canonicalize(input, DefaultTrackingPrefixes)
		twice := Canonicalize(once, DefaultTrackingPrefixes)
		if once != twice {
			t.Errorf("Expected canonical form of %q to be stable, got %q then %q", input, once, twice)
		}
	}
}

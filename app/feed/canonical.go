package feed

import (
	"net/url"
	"sort"
	"strings"
)

// DefaultTrackingPrefixes are query keys dropped during canonicalization.
// Matching is a lower-cased prefix test, so "ref" also drops "referrer".
var DefaultTrackingPrefixes = []string{"utm_", "fbclid", "gclid", "mc_cid", "mc_eid", "ref", "source"}

type queryPair struct {
	key   string
	value string
}

// Canonicalize turns a link into the identity key used for deduplication.
// Scheme and host are lower-cased, the fragment and tracking parameters are
// dropped, the remaining parameters are sorted and the trailing slash is
// removed from the path. Input that does not parse is returned trimmed.
func Canonicalize(rawURL string, trackingPrefixes []string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	netloc := strings.ToLower(u.Host)
	if u.User != nil {
		netloc = strings.ToLower(u.User.String()) + "@" + netloc
	}

	path := rawPath(raw)
	if u.Opaque != "" {
		path = u.Opaque
	}
	if path == "" {
		path = "/"
	}
	path = strings.TrimRight(path, "/")

	query := canonicalQuery(u.RawQuery, trackingPrefixes)

	var b strings.Builder
	if scheme != "" {
		b.WriteString(scheme)
		b.WriteByte(':')
	}
	if netloc != "" {
		b.WriteString("//")
		b.WriteString(netloc)
		if path != "" && !strings.HasPrefix(path, "/") {
			b.WriteByte('/')
		}
	}
	b.WriteString(path)
	if query != "" {
		b.WriteByte('?')
		b.WriteString(query)
	}

	return b.String()
}

// rawPath returns the path exactly as written in the link, so non-ASCII and
// percent-encoded paths keep their original spelling.
func rawPath(raw string) string {
	rest, _, _ := strings.Cut(raw, "#")
	rest, _, _ = strings.Cut(rest, "?")

	if i := strings.Index(rest, "//"); i >= 0 && !strings.Contains(rest[:i], "/") {
		rest = rest[i+2:]
		if j := strings.IndexByte(rest, '/'); j >= 0 {
			return rest[j:]
		}
		return ""
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 && !strings.Contains(rest[:i], "/") {
		return rest[i+1:]
	}
	return rest
}

func canonicalQuery(rawQuery string, trackingPrefixes []string) string {
	if rawQuery == "" {
		return ""
	}

	pairs := make([]queryPair, 0, 4)
	for _, part := range strings.Split(rawQuery, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		key = unescapeQuery(key)
		value = unescapeQuery(value)

		if isTrackingKey(key, trackingPrefixes) {
			continue
		}
		pairs = append(pairs, queryPair{key: key, value: value})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	encoded := make([]string, 0, len(pairs))
	for _, p := range pairs {
		encoded = append(encoded, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}
	return strings.Join(encoded, "&")
}

func unescapeQuery(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return s
}

func isTrackingKey(key string, trackingPrefixes []string) bool {
	lower := strings.ToLower(key)
	for _, prefix := range trackingPrefixes {
		if prefix != "" && strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

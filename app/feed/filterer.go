package feed

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var validFilterFields = map[string]bool{
	"title":       true,
	"description": true,
	"content":     true,
	"keywords":    true,
	"authors":     true,
	"link":        true,
	"categories":  true,
	"any":         true,
}

// Document is the text of one article as seen by the filters.
type Document struct {
	Title       string
	Description string
	Content     string
	Link        string
	Keywords    []string
	Authors     []string
	Categories  []string
}

// FilterResult tells whether a document passed a source's filters.
// Matched lists the include terms that were found, in filter order.
type FilterResult struct {
	Relevant bool
	Matched  []string
	Reason   string
}

// Filterer matches include/exclude terms against words. A term matches when
// each of its words is a prefix of consecutive words in the text, after case
// folding and accent removal, so the stem "protest" matches "Protesters" and
// "διαδηλωσ" matches "διαδηλώσεις".
type Filterer struct {
	folder cases.Caser
}

func NewFilterer() *Filterer {
	return &Filterer{folder: cases.Fold()}
}

func (f *Filterer) Run(doc Document, filters []ConfigFilter) FilterResult {
	if len(filters) == 0 {
		return FilterResult{Relevant: true}
	}

	var matched []string
	for _, filter := range filters {
		words := f.words(f.getFieldValue(doc, filter.Field))

		for _, exclude := range filter.Excludes {
			if f.matches(words, exclude) {
				return FilterResult{
					Matched: matched,
					Reason:  fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude),
				}
			}
		}

		if len(filter.Includes) == 0 {
			continue
		}

		found := false
		for _, include := range filter.Includes {
			if f.matches(words, include) {
				matched = append(matched, include)
				found = true
			}
		}
		if !found {
			return FilterResult{
				Matched: matched,
				Reason:  fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes),
			}
		}
	}

	return FilterResult{Relevant: true, Matched: matched}
}

func (f *Filterer) matches(words []string, term string) bool {
	termWords := f.words(term)
	if len(termWords) == 0 {
		return false
	}

	for i := 0; i+len(termWords) <= len(words); i++ {
		ok := true
		for j, termWord := range termWords {
			if !strings.HasPrefix(words[i+j], termWord) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func (f *Filterer) words(s string) []string {
	return strings.FieldsFunc(f.fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func (f *Filterer) fold(s string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripAccents, s)
	if err != nil {
		stripped = s
	}
	return f.folder.String(stripped)
}

func (f *Filterer) getFieldValue(doc Document, field string) string {
	switch field {
	case "title":
		return doc.Title
	case "description":
		return doc.Description
	case "content":
		return doc.Content
	case "keywords":
		return strings.Join(doc.Keywords, " ")
	case "authors":
		return strings.Join(doc.Authors, " ")
	case "link":
		return doc.Link
	case "categories":
		return strings.Join(doc.Categories, " ")
	case "any":
		return strings.Join([]string{
			doc.Title,
			doc.Description,
			doc.Content,
			strings.Join(doc.Keywords, " "),
			strings.Join(doc.Categories, " "),
		}, " ")
	default:
		return ""
	}
}

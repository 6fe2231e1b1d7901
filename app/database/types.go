package database

import (
	"time"
)

type Article struct {
	ID           string
	Source       string // source name the article was discovered in
	URL          string // canonical URL
	ContentHash  string // sha256 of trimmed title + "\n" + trimmed body
	Title        string
	Summary      string
	Content      string
	Author       string
	Keywords     []string
	MatchedTerms []string // include terms that made the article relevant
	Language     string
	PublishedAt  *time.Time
	RunID        string
	CreatedAt    time.Time
}

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Reason     string // completed, budget or canceled
	Stats      string // JSON snapshot of the final statistics
}

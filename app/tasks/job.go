package tasks

import (
	"time"

	"github.com/lysyi3m/strike-comb/app/feed"
)

// Job is one discovered item waiting in its source's queue.
type Job struct {
	ID           string
	Source       string
	Key          string // canonical URL, the dedup identity
	Item         feed.Item
	DiscoveredAt time.Time
}

package tasks

import (
	"sync"
	"time"
)

type SourceStats struct {
	Name            string    `json:"name"`
	URL             string    `json:"url"`
	Country         string    `json:"country,omitempty"`
	RefreshInterval float64   `json:"refresh_interval"` // seconds
	ProcessCooldown float64   `json:"process_cooldown"` // seconds
	FetchCycles     int       `json:"fetch_cycles"`
	JobsProcessed   int       `json:"jobs_processed"`
	ItemsYielded    int       `json:"items_yielded"`
	FetchErrors     int       `json:"fetch_errors"`
	ProcessErrors   int       `json:"process_errors"`
	QueueLength     int       `json:"queue_length"`
	SeenKeys        int       `json:"seen_keys"`
	NextFetchAt     time.Time `json:"next_fetch_at"`
	NextProcessAt   time.Time `json:"next_process_at"`
	Completed       bool      `json:"completed"` // reached the completion threshold
}

type Totals struct {
	Sources          int `json:"sources"`
	CompletedSources int `json:"completed_sources"`
	FetchCycles      int `json:"fetch_cycles"`
	JobsProcessed    int `json:"jobs_processed"`
	ItemsYielded     int `json:"items_yielded"`
	QueueLength      int `json:"queue_length"`
}

// Stats is a point-in-time copy of the scheduler state.
type Stats struct {
	RunID      string        `json:"run_id"`
	Running    bool          `json:"running"`
	StopReason StopReason    `json:"stop_reason,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    float64       `json:"elapsed"` // seconds
	Sources    []SourceStats `json:"sources"`
	Totals     Totals        `json:"totals"`
}

func (st Stats) Source(name string) (SourceStats, bool) {
	for _, source := range st.Sources {
		if source.Name == name {
			return source, true
		}
	}
	return SourceStats{}, false
}

// Board holds the latest published Stats so other goroutines (HTTP handlers)
// can read them while the scheduler runs.
type Board struct {
	mu        sync.RWMutex
	stats     Stats
	published bool
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Publish(stats Stats) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stats = stats
	b.published = true
}

// Snapshot returns the last published stats and whether anything was
// published yet.
func (b *Board) Snapshot() (Stats, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := b.stats
	stats.Sources = append([]SourceStats(nil), b.stats.Sources...)
	return stats, b.published
}

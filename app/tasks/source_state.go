package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/strike-comb/app/feed"
)

// SourceState is the scheduler's private view of one source: its job queue,
// the keys it has already enqueued, two timers and running counters.
// It is only touched from the scheduler goroutine.
type SourceState struct {
	config           *feed.Config
	session          *feed.Session
	fetcher          Fetcher
	processor        Processor
	trackingPrefixes []string
	runID            string
	logger           *slog.Logger

	refreshInterval time.Duration
	processCooldown time.Duration

	queue []Job
	// Keys are never evicted for the lifetime of a run.
	seen map[string]struct{}

	nextFetchAt   time.Time
	nextProcessAt time.Time

	fetchCycles   int
	jobsProcessed int
	itemsYielded  int
	fetchErrors   int
	processErrors int
}

// Negative intervals count as zero so both timers never move backwards.
func newSourceState(source Source, fetcher Fetcher, trackingPrefixes []string, runID string) *SourceState {
	return &SourceState{
		config:           source.Config,
		session:          source.Session,
		fetcher:          fetcher,
		processor:        source.Processor,
		trackingPrefixes: trackingPrefixes,
		runID:            runID,
		logger:           slog.With("source", source.Config.Name),
		refreshInterval:  max(source.Config.Settings.GetRefreshInterval(), 0),
		processCooldown:  max(source.Config.Settings.GetProcessCooldown(), 0),
		seen:             make(map[string]struct{}),
	}
}

func (s *SourceState) Name() string {
	return s.config.Name
}

func (s *SourceState) QueueLength() int {
	return len(s.queue)
}

// FetchIfDue fetches the source when its refresh timer has expired and
// enqueues every item whose canonical URL was not seen before. A failed fetch
// counts as an empty one. The timer and the cycle counter advance either way.
func (s *SourceState) FetchIfDue(ctx context.Context, now time.Time) bool {
	if now.Before(s.nextFetchAt) {
		return false
	}

	s.logger.Info("Fetching source", "url", s.config.URL, "fetch_cycle", s.fetchCycles+1)

	items, err := s.fetch(ctx)
	if err != nil {
		s.fetchErrors++
		s.logger.Error("Source fetch failed", "url", s.config.URL, "error", err)
		items = nil
	}

	added, skipped := s.enqueue(items, now)

	s.nextFetchAt = now.Add(s.refreshInterval)
	s.fetchCycles++

	s.logger.Info("Source fetched",
		"fetch_cycle", s.fetchCycles,
		"items", len(items),
		"enqueued", added,
		"skipped", skipped,
		"queue", len(s.queue))

	return true
}

// ProcessOneIfAny hands the oldest queued job to the processor once the
// cooldown has passed. Failed jobs yield nothing but still use up the cooldown.
func (s *SourceState) ProcessOneIfAny(ctx context.Context, now time.Time) bool {
	if len(s.queue) == 0 || now.Before(s.nextProcessAt) {
		return false
	}

	job := s.queue[0]
	s.queue[0] = Job{}
	s.queue = s.queue[1:]

	yield, err := s.process(ctx, job)
	if err != nil {
		s.processErrors++
		s.logger.Error("Job processing failed", "job_id", job.ID, "url", job.Key, "error", err)
		yield = 0
	}
	if yield < 0 {
		yield = 0
	}

	s.itemsYielded += yield
	s.jobsProcessed++
	s.nextProcessAt = now.Add(s.processCooldown)

	s.logger.Debug("Job processed",
		"job_id", job.ID,
		"url", job.Key,
		"yield", yield,
		"jobs_processed", s.jobsProcessed,
		"items_yielded", s.itemsYielded,
		"queue", len(s.queue))

	return true
}

func (s *SourceState) enqueue(items []feed.Item, now time.Time) (int, int) {
	added, skipped := 0, 0
	for _, item := range items {
		key := feed.Canonicalize(item.Link, s.trackingPrefixes)
		if key == "" {
			skipped++
			continue
		}
		if _, ok := s.seen[key]; ok {
			skipped++
			continue
		}

		s.seen[key] = struct{}{}
		s.queue = append(s.queue, Job{
			ID:           uuid.NewString(),
			Source:       s.config.Name,
			Key:          key,
			Item:         item,
			DiscoveredAt: now,
		})
		added++
	}
	return added, skipped
}

func (s *SourceState) fetch(ctx context.Context) (items []feed.Item, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetcher panic: %v", r)
		}
	}()
	return s.fetcher.Fetch(ctx, s.config, s.session)
}

func (s *SourceState) process(ctx context.Context, job Job) (yield int, err error) {
	defer func() {
		if r := recover(); r != nil {
			yield, err = 0, fmt.Errorf("processor panic: %v", r)
		}
	}()

	env := Env{
		Source:  s.config,
		Session: s.session,
		RunID:   s.runID,
		Logger:  s.logger,
	}
	return s.processor.Process(ctx, []Job{job}, env)
}

func (s *SourceState) stats() SourceStats {
	return SourceStats{
		Name:            s.config.Name,
		URL:             s.config.URL,
		Country:         s.config.Country,
		RefreshInterval: s.refreshInterval.Seconds(),
		ProcessCooldown: s.processCooldown.Seconds(),
		FetchCycles:     s.fetchCycles,
		JobsProcessed:   s.jobsProcessed,
		ItemsYielded:    s.itemsYielded,
		FetchErrors:     s.fetchErrors,
		ProcessErrors:   s.processErrors,
		QueueLength:     len(s.queue),
		SeenKeys:        len(s.seen),
		NextFetchAt:     s.nextFetchAt,
		NextProcessAt:   s.nextProcessAt,
	}
}

func (s *SourceState) close() {
	s.session.Close()
}

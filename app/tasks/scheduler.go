package tasks

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/strike-comb/app/feed"
)

var _ SchedulerInterface = (*Scheduler)(nil)

const (
	minIdleWait     = 100 * time.Millisecond
	maxIdleWait     = 1500 * time.Millisecond
	defaultIdleWait = time.Second
)

type StopReason string

const (
	StopCompleted StopReason = "completed"
	StopBudget    StopReason = "budget"
	StopCanceled  StopReason = "canceled"
)

type Options struct {
	// CompletionThreshold is the number of fetch cycles after which a source
	// counts as done. Defaults to 1.
	CompletionThreshold int
	// Budget bounds the wall time of Run. Zero means no bound.
	Budget           time.Duration
	ProgressInterval time.Duration // zero disables progress logging
	TrackingPrefixes []string
	UserAgent        string
	MaxRetries       int
	RunID            string
	Clock            Clock
	Board            *Board
}

// Scheduler multiplexes every source on one goroutine. Each tick fetches the
// sources that are due, processes at most one job across all sources and
// sleeps briefly when there was nothing to process.
type Scheduler struct {
	states           map[string]*SourceState
	order            []string
	threshold        int
	budget           time.Duration
	progressInterval time.Duration
	runID            string
	clock            Clock
	board            *Board

	startedAt  time.Time
	running    bool
	stopReason StopReason
	stopOnce   sync.Once
}

// NewScheduler builds one SourceState per valid source. Sources without a
// name, endpoint or processor, and repeated names, are left out with a warning.
func NewScheduler(sources []Source, fetcher Fetcher, opts Options) *Scheduler {
	threshold := opts.CompletionThreshold
	if threshold <= 0 {
		threshold = 1
	}

	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	trackingPrefixes := opts.TrackingPrefixes
	if trackingPrefixes == nil {
		trackingPrefixes = feed.DefaultTrackingPrefixes
	}

	s := &Scheduler{
		states:           make(map[string]*SourceState, len(sources)),
		threshold:        threshold,
		budget:           opts.Budget,
		progressInterval: opts.ProgressInterval,
		runID:            runID,
		clock:            clock,
		board:            opts.Board,
	}

	for _, source := range sources {
		if source.Config == nil {
			slog.Warn("Source excluded", "reason", "missing configuration")
			continue
		}

		name := source.Config.Name
		switch {
		case name == "":
			slog.Warn("Source excluded", "url", source.Config.URL, "reason", "missing name")
			continue
		case source.Config.URL == "":
			slog.Warn("Source excluded", "source", name, "reason", "missing endpoint")
			continue
		case source.Processor == nil:
			slog.Warn("Source excluded", "source", name, "reason", "missing processor")
			continue
		}
		if _, exists := s.states[name]; exists {
			slog.Warn("Source excluded", "source", name, "reason", "duplicate name")
			continue
		}

		if source.Session == nil {
			source.Session = feed.NewSourceSession(source.Config, opts.UserAgent, opts.MaxRetries)
		}

		s.states[name] = newSourceState(source, fetcher, trackingPrefixes, runID)
		s.order = append(s.order, name)
	}
	sort.Strings(s.order)

	return s
}

// Run drives the tick loop until every source has completed its fetch cycles
// with an empty queue, the budget runs out or ctx is canceled. Cancellation is
// only observed between ticks and while idle.
func (s *Scheduler) Run(ctx context.Context) (StopReason, error) {
	s.startedAt = s.clock.Now()
	s.running = true
	lastProgress := s.startedAt

	slog.Info("Scheduler started",
		"run_id", s.runID,
		"sources", len(s.order),
		"completion_threshold", s.threshold,
		"budget", s.budget)
	s.publish()

	for {
		if err := ctx.Err(); err != nil {
			return s.finish(StopCanceled), err
		}

		now := s.clock.Now()

		for _, name := range s.order {
			state := s.states[name]
			if state.fetchCycles < s.threshold {
				state.FetchIfDue(ctx, now)
			}
		}

		processed := false
		if state := s.nextReady(now); state != nil {
			processed = state.ProcessOneIfAny(ctx, now)
		}

		if s.completed() {
			slog.Info("All sources fetched and all queues are empty")
			return s.finish(StopCompleted), nil
		}

		if !processed {
			if err := s.clock.Sleep(ctx, s.idleWait(now)); err != nil {
				return s.finish(StopCanceled), err
			}
		}

		current := s.clock.Now()
		if s.progressInterval > 0 && current.Sub(lastProgress) >= s.progressInterval {
			s.logProgress(current)
			lastProgress = current
		}
		s.publish()

		if s.budget > 0 && current.Sub(s.startedAt) >= s.budget {
			slog.Info("Run budget exhausted", "budget", s.budget)
			return s.finish(StopBudget), nil
		}
	}
}

// nextReady picks the one source allowed to process this tick.
func (s *Scheduler) nextReady(now time.Time) *SourceState {
	var best *SourceState
	for _, name := range s.order {
		state := s.states[name]
		if len(state.queue) == 0 || now.Before(state.nextProcessAt) {
			continue
		}
		if best == nil || higherPriority(state, best) {
			best = state
		}
	}
	return best
}

// higherPriority orders ready sources: the larger cooldown first so slow
// sources are not starved by fast ones, then the one waiting longest, then
// the longer queue, then the name.
func higherPriority(a, b *SourceState) bool {
	if a.processCooldown != b.processCooldown {
		return a.processCooldown > b.processCooldown
	}
	if !a.nextProcessAt.Equal(b.nextProcessAt) {
		return a.nextProcessAt.Before(b.nextProcessAt)
	}
	if len(a.queue) != len(b.queue) {
		return len(a.queue) > len(b.queue)
	}
	return a.config.Name < b.config.Name
}

func (s *Scheduler) completed() bool {
	for _, state := range s.states {
		if state.fetchCycles < s.threshold || len(state.queue) > 0 {
			return false
		}
	}
	return true
}

// idleWait is the time until the next fetch or process deadline, bounded to
// [100ms, 1.5s]. A missing deadline of either kind counts as one second away.
func (s *Scheduler) idleWait(now time.Time) time.Duration {
	nextFetch := now.Add(defaultIdleWait)
	nextProcess := now.Add(defaultIdleWait)
	haveFetch, haveProcess := false, false

	for _, state := range s.states {
		if state.fetchCycles < s.threshold && (!haveFetch || state.nextFetchAt.Before(nextFetch)) {
			nextFetch = state.nextFetchAt
			haveFetch = true
		}
		if len(state.queue) > 0 && (!haveProcess || state.nextProcessAt.Before(nextProcess)) {
			nextProcess = state.nextProcessAt
			haveProcess = true
		}
	}

	deadline := nextFetch
	if nextProcess.Before(deadline) {
		deadline = nextProcess
	}

	return min(max(deadline.Sub(now), minIdleWait), maxIdleWait)
}

func (s *Scheduler) logProgress(now time.Time) {
	stats := s.Stats()
	slog.Info("Progress",
		"elapsed", now.Sub(s.startedAt).Round(time.Second),
		"completed_sources", stats.Totals.CompletedSources,
		"sources", stats.Totals.Sources,
		"jobs_processed", stats.Totals.JobsProcessed,
		"items_yielded", stats.Totals.ItemsYielded)

	for _, source := range stats.Sources {
		slog.Info("Source progress",
			"source", source.Name,
			"completed", source.Completed,
			"fetch_cycles", source.FetchCycles,
			"queue", source.QueueLength,
			"jobs_processed", source.JobsProcessed,
			"items_yielded", source.ItemsYielded,
			"next_process_in", max(source.NextProcessAt.Sub(now), 0).Round(time.Second))
	}
}

func (s *Scheduler) finish(reason StopReason) StopReason {
	s.running = false
	s.stopReason = reason
	s.publish()

	stats := s.Stats()
	slog.Info("Scheduler stopped",
		"run_id", s.runID,
		"reason", reason,
		"elapsed", s.clock.Now().Sub(s.startedAt).Round(time.Millisecond),
		"jobs_processed", stats.Totals.JobsProcessed,
		"items_yielded", stats.Totals.ItemsYielded)

	return reason
}

func (s *Scheduler) publish() {
	if s.board != nil {
		s.board.Publish(s.Stats())
	}
}

// Stats returns a snapshot of every source, ordered by name. Call it from the
// goroutine running the scheduler, or read the Board from anywhere else.
func (s *Scheduler) Stats() Stats {
	stats := Stats{
		RunID:      s.runID,
		Running:    s.running,
		StopReason: s.stopReason,
		StartedAt:  s.startedAt,
		Sources:    make([]SourceStats, 0, len(s.order)),
	}
	if !s.startedAt.IsZero() {
		stats.Elapsed = s.clock.Now().Sub(s.startedAt).Seconds()
	}

	for _, name := range s.order {
		source := s.states[name].stats()
		source.Completed = source.FetchCycles >= s.threshold

		stats.Sources = append(stats.Sources, source)
		stats.Totals.Sources++
		stats.Totals.FetchCycles += source.FetchCycles
		stats.Totals.JobsProcessed += source.JobsProcessed
		stats.Totals.ItemsYielded += source.ItemsYielded
		stats.Totals.QueueLength += source.QueueLength
		if source.Completed {
			stats.Totals.CompletedSources++
		}
	}

	return stats
}

func (s *Scheduler) RunID() string {
	return s.runID
}

// Stop releases every source's session. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		for _, name := range s.order {
			s.states[name].close()
		}
		slog.Debug("Scheduler sessions closed", "sources", len(s.order))
	})
}

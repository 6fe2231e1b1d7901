package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/strike-comb/app/feed"
)

// SchedulerInterface is what the entrypoint needs from a scheduler.
// Example usage:
//
//	scheduler := NewScheduler(sources, fetcher, Options{CompletionThreshold: 1})
//	defer scheduler.Stop()
//	reason, err := scheduler.Run(ctx)
type SchedulerInterface interface {
	Run(ctx context.Context) (StopReason, error)
	Stats() Stats
	Stop()
}

// Fetcher returns the candidate items currently listed at a source's endpoint.
type Fetcher interface {
	Fetch(ctx context.Context, sourceConfig *feed.Config, session *feed.Session) ([]feed.Item, error)
}

// Processor consumes jobs and returns how many useful results they produced.
// The scheduler always passes a batch of exactly one job.
type Processor interface {
	Process(ctx context.Context, batch []Job, env Env) (int, error)
}

type ProcessorFunc func(ctx context.Context, batch []Job, env Env) (int, error)

func (f ProcessorFunc) Process(ctx context.Context, batch []Job, env Env) (int, error) {
	return f(ctx, batch, env)
}

// Env carries the resources a processor may use for one source.
type Env struct {
	Source  *feed.Config
	Session *feed.Session
	RunID   string
	Logger  *slog.Logger
}

// Source is one registry entry handed to the scheduler. Session may be nil,
// in which case the scheduler opens one from the source's settings.
type Source struct {
	Config    *feed.Config
	Session   *feed.Session
	Processor Processor
}

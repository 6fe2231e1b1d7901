package database

import (
	"context"
	"time"
)

type ArticleRepositoryInterface interface {
	// UpsertArticle stores a new article and reports whether it was new.
	// An article whose URL or content hash is already stored is skipped.
	UpsertArticle(ctx context.Context, article Article) (bool, error)
	GetArticles(ctx context.Context, source string, limit int) ([]Article, error)
	CountBySource(ctx context.Context) (map[string]int, error)
}

type RunRepositoryInterface interface {
	StartRun(ctx context.Context, runID string, startedAt time.Time) error
	FinishRun(ctx context.Context, runID string, finishedAt time.Time, reason string, stats string) error
	GetRun(ctx context.Context, runID string) (*Run, error)
}

var (
	_ ArticleRepositoryInterface = (*ArticleRepository)(nil)
	_ RunRepositoryInterface     = (*RunRepository)(nil)
)

package api

import (
	"github.com/lysyi3m/strike-comb/app/database"
	"github.com/lysyi3m/strike-comb/app/feed"
	"github.com/lysyi3m/strike-comb/app/tasks"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 500
)

type GeneratorInterface interface {
	Run(sourceConfig *feed.Config, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

// StatsSource is read by the HTTP handlers while a run is in progress.
type StatsSource interface {
	Snapshot() (tasks.Stats, bool)
}

var _ StatsSource = (*tasks.Board)(nil)

type Handler struct {
	configCache *feed.ConfigCache
	articleRepo database.ArticleRepositoryInterface
	generator   GeneratorInterface
	board       StatsSource
}

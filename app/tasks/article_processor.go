package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/strike-comb/app/database"
	"github.com/lysyi3m/strike-comb/app/feed"
)

var _ Processor = (*ArticleProcessor)(nil)

// ArticleProcessor downloads each job's page, extracts the article, runs the
// source's filters and stores relevant articles. Its yield is the number of
// articles that were new to the database.
type ArticleProcessor struct {
	articleRepo      database.ArticleRepositoryInterface
	contentExtractor *feed.ContentExtractor
	filterer         *feed.Filterer
}

func NewArticleProcessor(articleRepo database.ArticleRepositoryInterface, contentExtractor *feed.ContentExtractor, filterer *feed.Filterer) *ArticleProcessor {
	return &ArticleProcessor{
		articleRepo:      articleRepo,
		contentExtractor: contentExtractor,
		filterer:         filterer,
	}
}

func (p *ArticleProcessor) Process(ctx context.Context, batch []Job, env Env) (int, error) {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stored := 0
	var errs []error
	for _, job := range batch {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		inserted, err := p.processJob(ctx, job, env, logger)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Key, err))
			continue
		}
		if inserted {
			stored++
		}
	}

	return stored, errors.Join(errs...)
}

func (p *ArticleProcessor) processJob(ctx context.Context, job Job, env Env, logger *slog.Logger) (bool, error) {
	link := job.Item.Link
	if link == "" {
		link = job.Key
	}

	resp, err := env.Session.Get(ctx, link)
	if err != nil {
		return false, err
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if contentType != "" && !strings.Contains(contentType, "html") {
		logger.Debug("Skipping non-HTML page", "url", link, "content_type", contentType)
		return false, nil
	}

	article, err := p.contentExtractor.Run(resp.Body, resp.URL)
	if err != nil {
		return false, fmt.Errorf("failed to extract content: %w", err)
	}

	title := firstNonEmpty(article.Title, job.Item.Title)
	summary := firstNonEmpty(article.Description, job.Item.Description)
	keywords := mergeKeywords(job.Item.Keywords, article.Keywords)

	var filters []feed.ConfigFilter
	if env.Source != nil {
		filters = env.Source.Filters
	}

	result := p.filterer.Run(feed.Document{
		Title:       title,
		Description: summary,
		Content:     article.Text,
		Link:        job.Key,
		Keywords:    keywords,
		Authors:     job.Item.Authors,
		Categories:  job.Item.Categories,
	}, filters)
	if !result.Relevant {
		logger.Debug("Article not relevant", "url", link, "reason", result.Reason)
		return false, nil
	}

	publishedAt := job.Item.PublishedAt
	if publishedAt == nil {
		publishedAt = article.PublishedAt
	}

	author := article.Author
	if author == "" && len(job.Item.Authors) > 0 {
		author = job.Item.Authors[0]
	}

	inserted, err := p.articleRepo.UpsertArticle(ctx, database.Article{
		Source:       job.Source,
		URL:          job.Key,
		ContentHash:  feed.ContentHash(title, article.Text),
		Title:        title,
		Summary:      summary,
		Content:      article.Content,
		Author:       author,
		Keywords:     keywords,
		MatchedTerms: result.Matched,
		Language:     firstNonEmpty(job.Item.Language, article.Language),
		PublishedAt:  publishedAt,
		RunID:        env.RunID,
	})
	if err != nil {
		return false, err
	}

	if inserted {
		logger.Info("Article stored", "url", job.Key, "title", title, "matched", result.Matched)
	} else {
		logger.Debug("Article already stored", "url", job.Key)
	}

	return inserted, nil
}

func mergeKeywords(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, keyword := range list {
			key := strings.ToLower(strings.TrimSpace(keyword))
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, strings.TrimSpace(keyword))
		}
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

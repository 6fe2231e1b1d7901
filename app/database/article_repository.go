package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var articleColumns = []string{
	"id", "source", "url", "content_hash", "title", "summary", "content",
	"author", "keywords", "matched_terms", "language", "published_at",
	"run_id", "created_at",
}

// ArticleRepository handles database operations for stored articles
type ArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func (r *ArticleRepository) UpsertArticle(ctx context.Context, article Article) (bool, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}

	keywords, err := encodeList(article.Keywords)
	if err != nil {
		return false, err
	}
	matched, err := encodeList(article.MatchedTerms)
	if err != nil {
		return false, err
	}

	var publishedAt any
	if article.PublishedAt != nil {
		publishedAt = article.PublishedAt.UTC()
	}

	query, args, err := sq.Insert("articles").
		Columns(articleColumns...).
		Values(
			article.ID, article.Source, article.URL, article.ContentHash,
			article.Title, article.Summary, article.Content, article.Author,
			keywords, matched, article.Language, publishedAt,
			article.RunID, article.CreatedAt.UTC(),
		).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to store article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// GetArticles returns the newest articles of a source, most recent first
func (r *ArticleRepository) GetArticles(ctx context.Context, source string, limit int) ([]Article, error) {
	builder := sq.Select(articleColumns...).
		From("articles").
		Where(sq.Eq{"source": source}).
		OrderBy("COALESCE(published_at, created_at) DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var article Article
		var keywords, matched string
		var publishedAt sql.NullTime

		err := rows.Scan(
			&article.ID, &article.Source, &article.URL, &article.ContentHash,
			&article.Title, &article.Summary, &article.Content, &article.Author,
			&keywords, &matched, &article.Language, &publishedAt,
			&article.RunID, &article.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}

		if publishedAt.Valid {
			published := publishedAt.Time
			article.PublishedAt = &published
		}
		article.Keywords = decodeList(keywords)
		article.MatchedTerms = decodeList(matched)

		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepository) CountBySource(ctx context.Context) (map[string]int, error) {
	query, args, err := sq.Select("source", "COUNT(*)").
		From("articles").
		GroupBy("source").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		counts[source] = count
	}

	return counts, rows.Err()
}

func encodeList(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

func decodeList(raw string) []string {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil
	}
	return values
}

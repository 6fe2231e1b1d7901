package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("Expected migration version 2 (clean), got %d (dirty=%t)", version, dirty)
	}

	return db
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Expected version 2 (clean), got %d (dirty=%t)", version, dirty)
	}
}

func TestArticleRepositoryUpsertArticle(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	published := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	article := Article{
		Source:       "greece",
		URL:          "https://example.gr/news/1",
		ContentHash:  "hash-1",
		Title:        "Protest in Athens",
		Summary:      "Thousands marched",
		Content:      "<p>Thousands marched</p>",
		Author:       "Reporter",
		Keywords:     []string{"protest", "athens"},
		MatchedTerms: []string{"protest"},
		Language:     "el",
		PublishedAt:  &published,
		RunID:        "run-1",
	}

	inserted, err := repo.UpsertArticle(ctx, article)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !inserted {
		t.Errorf("Expected first insert to report a new article")
	}

	// Same URL
	inserted, err = repo.UpsertArticle(ctx, article)
	if err != nil {
		t.Fatalf("Expected no error on duplicate URL, got %v", err)
	}
	if inserted {
		t.Errorf("Expected duplicate URL to be skipped")
	}

	// Same content under another URL
	article.URL = "https://example.gr/news/1-copy"
	inserted, err = repo.UpsertArticle(ctx, article)
	if err != nil {
		t.Fatalf("Expected no error on duplicate hash, got %v", err)
	}
	if inserted {
		t.Errorf("Expected duplicate content hash to be skipped")
	}

	articles, err := repo.GetArticles(ctx, "greece", 10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(articles))
	}

	got := articles[0]
	if got.ID == "" {
		t.Errorf("Expected generated ID")
	}
	if got.Title != "Protest in Athens" {
		t.Errorf("Expected title 'Protest in Athens', got '%s'", got.Title)
	}
	if len(got.Keywords) != 2 || got.Keywords[1] != "athens" {
		t.Errorf("Expected keywords [protest athens], got %v", got.Keywords)
	}
	if len(got.MatchedTerms) != 1 || got.MatchedTerms[0] != "protest" {
		t.Errorf("Expected matched terms [protest], got %v", got.MatchedTerms)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Errorf("Expected published_at %v, got %v", published, got.PublishedAt)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("Expected created_at to be set")
	}
}

func TestArticleRepositoryGetArticlesOrderAndLimit(t *testing.T) {
	db := newTestDB(t)
	repo := NewArticleRepository(db)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, link := range []string{"https://a.test/1", "https://a.test/2", "https://a.test/3"} {
		published := base.Add(time.Duration(i) * time.Hour)
		_, err := repo.UpsertArticle(ctx, Article{
			Source:      "a",
			URL:         link,
			ContentHash: link,
			Title:       link,
			PublishedAt: &published,
		})
		if err != nil {
			t.Fatalf("Failed to insert %s: %v", link, err)
		}
	}
	if _, err := repo.UpsertArticle(ctx, Article{Source: "b", URL: "https://b.test/1", ContentHash: "b1"}); err != nil {
		t.Fatalf("Failed to insert b: %v", err)
	}

	articles, err := repo.GetArticles(ctx, "a", 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(articles))
	}
	if articles[0].URL != "https://a.test/3" || articles[1].URL != "https://a.test/2" {
		t.Errorf("Expected newest first, got %s, %s", articles[0].URL, articles[1].URL)
	}

	counts, err := repo.CountBySource(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if counts["a"] != 3 || counts["b"] != 1 {
		t.Errorf("Expected counts a=3 b=1, got %v", counts)
	}
}

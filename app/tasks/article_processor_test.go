package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/strike-comb/app/database"
	"github.com/lysyi3m/strike-comb/app/feed"
)

type fakeArticleRepo struct {
	articles map[string]database.Article
}

func newFakeArticleRepo() *fakeArticleRepo {
	return &fakeArticleRepo{articles: make(map[string]database.Article)}
}

func (r *fakeArticleRepo) UpsertArticle(_ context.Context, article database.Article) (bool, error) {
	for _, existing := range r.articles {
		if existing.URL == article.URL || existing.ContentHash == article.ContentHash {
			return false, nil
		}
	}
	r.articles[article.URL] = article
	return true, nil
}

func (r *fakeArticleRepo) GetArticles(context.Context, string, int) ([]database.Article, error) {
	return nil, nil
}

func (r *fakeArticleRepo) CountBySource(context.Context) (map[string]int, error) {
	return nil, nil
}

func articlePage(title, body string) string {
	paragraph := fmt.Sprintf("<p>%s This paragraph carries enough text for the readability scorer to treat the block as the main article body of the page.</p>", body)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
  <title>%s</title>
  <meta name="description" content="%s">
  <meta name="keywords" content="news, world">
  <meta property="article:published_time" content="2025-04-02T08:00:00Z">
</head>
<body>
  <nav>Home | World | Sports</nav>
  <article>
    <h1>%s</h1>
    %s
    %s
    %s
  </article>
  <footer>Copyright</footer>
</body>
</html>`, title, body, title, paragraph, paragraph, paragraph)
}

func newArticleServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/protest", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage("Protesters gather downtown", "Thousands of protesters gathered in the main square."))
	})
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage("Sunny weekend ahead", "Forecasters expect clear skies and warm temperatures."))
	})
	mux.HandleFunc("/report.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func processorEnv(serverURL string) Env {
	config := &feed.Config{
		Name: "test",
		URL:  serverURL + "/rss",
		Filters: []feed.ConfigFilter{
			{Field: "any", Includes: []string{"protest"}},
		},
	}
	return Env{
		Source:  config,
		Session: feed.NewSession("test", feed.SessionOptions{Timeout: 5 * time.Second}),
		RunID:   "run-1",
	}
}

func jobFor(link string) Job {
	return Job{
		ID:     "job-" + link,
		Source: "test",
		Key:    feed.Canonicalize(link, feed.DefaultTrackingPrefixes),
		Item:   feed.Item{Link: link, Title: "Feed title"},
	}
}

func TestArticleProcessorStoresRelevantArticle(t *testing.T) {
	server := newArticleServer(t)
	repo := newFakeArticleRepo()
	processor := NewArticleProcessor(repo, feed.NewContentExtractor(), feed.NewFilterer())
	env := processorEnv(server.URL)
	defer env.Session.Close()

	job := jobFor(server.URL + "/protest")
	yield, err := processor.Process(context.Background(), []Job{job}, env)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if yield != 1 {
		t.Fatalf("Expected yield 1, got %d", yield)
	}

	stored, ok := repo.articles[job.Key]
	if !ok {
		t.Fatalf("Expected article stored under %s", job.Key)
	}
	if stored.Source != "test" || stored.RunID != "run-1" {
		t.Errorf("Expected source 'test' and run 'run-1', got '%s' and '%s'", stored.Source, stored.RunID)
	}
	if !strings.Contains(stored.Title, "Protesters") {
		t.Errorf("Expected extracted title, got '%s'", stored.Title)
	}
	if len(stored.MatchedTerms) != 1 || stored.MatchedTerms[0] != "protest" {
		t.Errorf("Expected matched terms [protest], got %v", stored.MatchedTerms)
	}
	if stored.ContentHash == "" {
		t.Errorf("Expected content hash")
	}
	if stored.PublishedAt == nil {
		t.Errorf("Expected published date from page metadata")
	}

	// The same job again is not new.
	yield, err = processor.Process(context.Background(), []Job{job}, env)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if yield != 0 {
		t.Errorf("Expected yield 0 for an already stored article, got %d", yield)
	}
}

func TestArticleProcessorSkipsIrrelevantAndNonHTML(t *testing.T) {
	server := newArticleServer(t)
	repo := newFakeArticleRepo()
	processor := NewArticleProcessor(repo, feed.NewContentExtractor(), feed.NewFilterer())
	env := processorEnv(server.URL)
	defer env.Session.Close()

	for _, path := range []string{"/weather", "/report.pdf"} {
		yield, err := processor.Process(context.Background(), []Job{jobFor(server.URL + path)}, env)
		if err != nil {
			t.Errorf("Expected no error for %s, got %v", path, err)
		}
		if yield != 0 {
			t.Errorf("Expected yield 0 for %s, got %d", path, yield)
		}
	}

	if len(repo.articles) != 0 {
		t.Errorf("Expected nothing stored, got %d articles", len(repo.articles))
	}
}

func TestArticleProcessorReportsFetchErrors(t *testing.T) {
	server := newArticleServer(t)
	processor := NewArticleProcessor(newFakeArticleRepo(), feed.NewContentExtractor(), feed.NewFilterer())
	env := processorEnv(server.URL)
	defer env.Session.Close()

	yield, err := processor.Process(context.Background(), []Job{jobFor(server.URL + "/missing")}, env)
	if err == nil {
		t.Error("Expected error for a missing page")
	}
	if yield != 0 {
		t.Errorf("Expected yield 0, got %d", yield)
	}
}

func TestArticleProcessorWithoutFiltersStoresEverything(t *testing.T) {
	server := newArticleServer(t)
	repo := newFakeArticleRepo()
	processor := NewArticleProcessor(repo, feed.NewContentExtractor(), feed.NewFilterer())
	env := processorEnv(server.URL)
	env.Source.Filters = nil
	defer env.Session.Close()

	batch := []Job{jobFor(server.URL + "/protest"), jobFor(server.URL + "/weather")}
	yield, err := processor.Process(context.Background(), batch, env)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if yield != 2 {
		t.Errorf("Expected yield 2, got %d", yield)
	}
}

func TestMergeKeywords(t *testing.T) {
	got := mergeKeywords([]string{"Protest", " strike "}, []string{"protest", "", "Athens"})
	want := []string{"Protest", "strike", "Athens"}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected keyword %d to be %s, got %s", i, want[i], got[i])
		}
	}
}

package api

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/strike-comb/app/database"
	"github.com/lysyi3m/strike-comb/app/feed"
)

func NewHandler(configCache *feed.ConfigCache, articleRepo database.ArticleRepositoryInterface,
	generator GeneratorInterface, board StatsSource) *Handler {
	return &Handler{
		configCache: configCache,
		articleRepo: articleRepo,
		generator:   generator,
		board:       board,
	}
}

// GetFeed serves the stored articles of one source as RSS.
func (h *Handler) GetFeed(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.Status(http.StatusBadRequest)
			return
		}
		limit = min(parsed, maxFeedLimit)
	}

	articles, err := h.articleRepo.GetArticles(c.Request.Context(), name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_articles", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(sourceConfig, articles)
	if err != nil {
		slog.Error("RSS generation error", "source", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.Header("X-Feed-Name", name)
	if len(articles) > 0 {
		c.Header("X-Last-Updated", articles[0].CreatedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"loaded_configurations": h.configCache.GetConfigCount(),
	}

	if counts, err := h.articleRepo.CountBySource(c.Request.Context()); err == nil {
		total := 0
		for _, n := range counts {
			total += n
		}
		health["articles"] = total
	}

	if stats, ok := h.board.Snapshot(); ok {
		health["run_id"] = stats.RunID
		health["running"] = stats.Running
	}

	c.JSON(http.StatusOK, health)
}

// GetStats returns the latest scheduler snapshot.
func (h *Handler) GetStats(c *gin.Context) {
	stats, ok := h.board.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No run statistics yet"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetSourceStats(c *gin.Context) {
	name := c.Param("name")

	stats, ok := h.board.Snapshot()
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No run statistics yet"})
		return
	}

	sourceStats, found := stats.Source(name)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not scheduled in this run"})
		return
	}
	c.JSON(http.StatusOK, sourceStats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	counts, err := h.articleRepo.CountBySource(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "count_by_source", "error", err)
		counts = map[string]int{}
	}
	stats, published := h.board.Snapshot()

	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make([]map[string]interface{}, 0, len(configs))
	for _, name := range names {
		sourceConfig := configs[name]
		sourceInfo := map[string]interface{}{
			"name":             sourceConfig.Name,
			"url":              sourceConfig.URL,
			"country":          sourceConfig.Country,
			"enabled":          sourceConfig.Settings.Enabled,
			"refresh_interval": sourceConfig.Settings.GetRefreshInterval().String(),
			"process_cooldown": sourceConfig.Settings.GetProcessCooldown().String(),
			"filters":          len(sourceConfig.Filters),
			"article_count":    counts[name],
		}

		if published {
			if sourceStats, ok := stats.Source(name); ok {
				sourceInfo["fetch_cycles"] = sourceStats.FetchCycles
				sourceInfo["queue_length"] = sourceStats.QueueLength
				sourceInfo["items_yielded"] = sourceStats.ItemsYielded
			}
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIGetSourceDetails(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	sourceConfig, err := h.configCache.GetConfig(name)
	if err != nil {
		slog.Error("Source configuration not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	details := map[string]interface{}{
		"name":                 name,
		"url":                  sourceConfig.URL,
		"country":              sourceConfig.Country,
		"enabled":              sourceConfig.Settings.Enabled,
		"format":               sourceConfig.Settings.Format,
		"refresh_interval":     sourceConfig.Settings.GetRefreshInterval().String(),
		"process_cooldown":     sourceConfig.Settings.GetProcessCooldown().String(),
		"timeout":              sourceConfig.Settings.GetTimeout().String(),
		"min_request_interval": sourceConfig.Settings.GetMinRequestInterval().String(),
		"filters":              sourceConfig.Filters,
	}

	if counts, err := h.articleRepo.CountBySource(c.Request.Context()); err == nil {
		details["article_count"] = counts[name]
	}

	if stats, ok := h.board.Snapshot(); ok {
		if sourceStats, found := stats.Source(name); found {
			details["run"] = sourceStats
		}
	}

	c.JSON(http.StatusOK, details)
}

// APIReloadSource re-reads a source file into the registry listed by
// /api/sources. The running scheduler keeps the configuration it started with.
func (h *Handler) APIReloadSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing source name parameter"})
		return
	}

	if _, err := h.configCache.GetConfig(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source configuration not found"})
		return
	}

	sourceConfig, err := h.configCache.LoadConfig(name)
	if err != nil {
		slog.Error("Error reloading configuration", "source", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload configuration",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Configuration reloaded into the registry; the current run keeps its settings",
		"source": gin.H{
			"name":    name,
			"url":     sourceConfig.URL,
			"enabled": sourceConfig.Settings.Enabled,
		},
	})
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/strike-comb/app/api"
	"github.com/lysyi3m/strike-comb/app/cfg"
	"github.com/lysyi3m/strike-comb/app/database"
	"github.com/lysyi3m/strike-comb/app/feed"
	"github.com/lysyi3m/strike-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Strike Comb", "version", appCfg.Version)

	if err := run(appCfg); err != nil {
		slog.Error("Strike Comb stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Strike Comb shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	configCache := feed.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load source configurations: %w", err)
	}
	configs := configCache.GetEnabledConfigs()
	slog.Info("Source configurations loaded",
		"dir", appCfg.SourcesDir,
		"loaded", configCache.GetConfigCount(),
		"enabled", len(configs))

	articleRepo := database.NewArticleRepository(db)
	runRepo := database.NewRunRepository(db)

	processor := tasks.NewArticleProcessor(articleRepo, feed.NewContentExtractor(), feed.NewFilterer())

	sources := make([]tasks.Source, 0, len(configs))
	for _, sourceConfig := range configs {
		sources = append(sources, tasks.Source{Config: sourceConfig, Processor: processor})
	}

	board := tasks.NewBoard()

	scheduler := tasks.NewScheduler(sources, feed.NewFetcher(feed.NewParser()), tasks.Options{
		CompletionThreshold: appCfg.CompletionThreshold,
		Budget:              appCfg.RunBudget(),
		ProgressInterval:    appCfg.GetProgressInterval(),
		TrackingPrefixes:    appCfg.TrackingPrefixes,
		UserAgent:           appCfg.UserAgent,
		MaxRetries:          appCfg.MaxRetries,
		Board:               board,
	})
	defer scheduler.Stop()

	runID := scheduler.RunID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)
	if appCfg.Port != "" {
		handler := api.NewHandler(configCache, articleRepo, feed.NewGenerator(appCfg.BaseUrl, appCfg.Version), board)
		httpServer = &http.Server{
			Addr:         ":" + appCfg.Port,
			Handler:      api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", appCfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	}

	if err := runRepo.StartRun(ctx, runID, time.Now()); err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}

	reason, runErr := scheduler.Run(ctx)
	stats := scheduler.Stats()
	logReport(stats)

	statsJSON, err := json.Marshal(stats)
	if err != nil {
		slog.Error("Failed to encode run statistics", "error", err)
	}
	// The signal context may already be done here.
	if err := runRepo.FinishRun(context.Background(), runID, time.Now(), string(reason), string(statsJSON)); err != nil {
		slog.Error("Failed to record run finish", "run_id", runID, "error", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if httpServer == nil {
		return nil
	}

	if appCfg.Serve && ctx.Err() == nil {
		slog.Info("Run finished, serving feeds until interrupted", "port", appCfg.Port)
		select {
		case <-ctx.Done():
			slog.Info("Received shutdown signal")
		case err := <-serverErrChan:
			slog.Error("Server error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return nil
}

// logReport prints the end-of-run summary, one line per source and the totals.
func logReport(stats tasks.Stats) {
	for _, source := range stats.Sources {
		slog.Info("Source report",
			"source", source.Name,
			"country", source.Country,
			"fetch_cycles", source.FetchCycles,
			"jobs_processed", source.JobsProcessed,
			"items_yielded", source.ItemsYielded,
			"fetch_errors", source.FetchErrors,
			"process_errors", source.ProcessErrors,
			"queue_left", source.QueueLength,
			"seen", source.SeenKeys)
	}

	slog.Info("Run report",
		"run_id", stats.RunID,
		"reason", stats.StopReason,
		"elapsed", time.Duration(stats.Elapsed*float64(time.Second)).Round(time.Second),
		"sources", stats.Totals.Sources,
		"completed_sources", stats.Totals.CompletedSources,
		"fetch_cycles", stats.Totals.FetchCycles,
		"jobs_processed", stats.Totals.JobsProcessed,
		"items_yielded", stats.Totals.ItemsYielded,
		"queue_left", stats.Totals.QueueLength)
}

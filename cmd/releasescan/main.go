package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabriel/release-panels/internal/config"
	connectordefaults "github.com/gabriel/release-panels/internal/connectors/defaults"
	"github.com/gabriel/release-panels/internal/database"
	"github.com/gabriel/release-panels/internal/fetchproxy"
	"github.com/gabriel/release-panels/internal/mergestore"
	"github.com/gabriel/release-panels/internal/notifications"
	"github.com/gabriel/release-panels/internal/repository"
	"github.com/gabriel/release-panels/internal/resolver"
	"github.com/gabriel/release-panels/internal/search"
	"github.com/gabriel/release-panels/internal/session"
)

type summary struct {
	Total    int
	Visible  int
	Hidden   int
	Seeders  int64
	TopName  string
	State    string
	Duration time.Duration
}

func main() {
	var (
		titleID    = flag.Int64("title-id", 0, "Title id to search releases for (required)")
		mode       = flag.String("mode", "full", "Search mode: full|episode")
		episode    = flag.String("episode", "", "Episode number for episode mode")
		sortBy     = flag.String("sort", "seeders", "Sort criteria: seeders|date|size|completed")
		filterText = flag.String("filter", "", "Whitespace separated filter tokens")
		filterMode = flag.String("filter-mode", "include", "Filter mode: include|exclude")
		limit      = flag.Int("limit", 0, "Print at most this many results (0 = all)")
		timeout    = flag.Duration("timeout", 3*time.Minute, "Overall search timeout")
		noCache    = flag.Bool("no-cache", false, "Skip the sqlite mapping slot")
		asJSON     = flag.Bool("json", false, "Print results as JSON")
	)
	flag.Parse()

	if *titleID <= 0 {
		fmt.Fprintln(os.Stderr, "-title-id is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	searchMode, err := session.ParseMode(*mode)
	if err != nil {
		slog.Error("invalid mode", "error", err)
		os.Exit(2)
	}
	criteria, err := mergestore.ParseCriteria(*sortBy)
	if err != nil {
		slog.Error("invalid sort", "error", err)
		os.Exit(2)
	}
	filter, err := mergestore.ParseFilterMode(*filterMode)
	if err != nil {
		slog.Error("invalid filter mode", "error", err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	registry, registryErr := connectordefaults.NewRegistry(cfg.SourcesPath, client)
	if registryErr != nil {
		slog.Warn("mapping sources loaded with warnings", "error", registryErr)
	}

	sessionCfg := session.Config{
		Resolver: resolver.New(registry, logger),
		Searcher: search.New(fetchproxy.NewHTTPFetcher(client), search.Options{
			FeedURL:          cfg.IndexFeedURL,
			IndexBaseURL:     cfg.IndexBaseURL,
			LookupsPerSecond: cfg.IndexLookupsPerSecond,
			Concurrency:      cfg.IndexLookupConcurrency,
			Logger:           logger,
		}),
		Notifier: notifications.NewLogNotifier(logger),
		Logger:   logger,
	}

	if !*noCache {
		db, err := database.Open(cfg.SQLitePath)
		if err != nil {
			slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		sessionCfg.Slots = repository.NewMappingSlotRepository(db)
	}

	sess := session.New(sessionCfg)
	sess.ChangeSort(criteria)
	sess.SetFilter(*filterText, filter)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	started := time.Now()
	if _, err := sess.StartSearch(ctx, session.SearchRequest{TitleID: *titleID, Mode: searchMode, Episode: *episode}); err != nil {
		slog.Error(session.UserMessage(err), "title_id", *titleID, "error", err)
		os.Exit(1)
	}

	status := sess.Wait(ctx)
	if ctx.Err() != nil {
		status = sess.Stop()
	}

	panel := sess.Panel()
	stats := summarize(panel.Items, status, time.Since(started))
	if *asJSON {
		if err := writeJSON(os.Stdout, panel.Items, *limit); err != nil {
			slog.Error("failed to write results", "error", err)
			os.Exit(1)
		}
	} else {
		writeTable(os.Stdout, panel.Items, *limit)
	}

	slog.Info(
		"scan completed",
		"title_id", *titleID,
		"state", stats.State,
		"message", status.Message,
		"total", stats.Total,
		"visible", stats.Visible,
		"hidden", stats.Hidden,
		"top", stats.TopName,
		"duration", stats.Duration.Round(time.Millisecond),
	)
}

func summarize(items []mergestore.Item, status session.Status, elapsed time.Duration) summary {
	stats := summary{State: string(status.State), Duration: elapsed}
	for _, item := range items {
		stats.Total++
		if !item.Visible {
			stats.Hidden++
			continue
		}
		stats.Visible++
		stats.Seeders += item.Seeders
		if stats.TopName == "" {
			stats.TopName = item.Result.ReleaseName
		}
	}
	return stats
}

func visibleItems(items []mergestore.Item, limit int) []mergestore.Item {
	visible := make([]mergestore.Item, 0, len(items))
	for _, item := range items {
		if !item.Visible {
			continue
		}
		visible = append(visible, item)
		if limit > 0 && len(visible) == limit {
			break
		}
	}
	return visible
}

func formatLine(item mergestore.Item) string {
	size := strings.TrimSpace(item.Result.FileSize)
	if size == "" {
		size = "?"
	}
	date := strings.TrimSpace(item.Result.Date)
	if date == "" {
		date = "-"
	}
	return fmt.Sprintf("%6d  %10s  %-20s  %s", item.Seeders, size, date, item.Result.ReleaseName)
}

func writeTable(w io.Writer, items []mergestore.Item, limit int) {
	for _, item := range visibleItems(items, limit) {
		fmt.Fprintln(w, formatLine(item))
	}
}

func writeJSON(w io.Writer, items []mergestore.Item, limit int) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(visibleItems(items, limit))
}

package main

import (
	"flag"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gabriel/release-panels/internal/config"
	connectordefaults "github.com/gabriel/release-panels/internal/connectors/defaults"
	"github.com/gabriel/release-panels/internal/database"
	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/repository"
)

func main() {
	var (
		apply  bool
		maxAge time.Duration
	)
	flag.BoolVar(&apply, "apply", false, "Clear the slot. Without this flag, the command is a dry-run preview.")
	flag.DurationVar(&maxAge, "max-age", 0, "Also treat slots older than this as stale (0 = never)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	logger := slog.New(handler)
	slog.SetDefault(logger)

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

	activeSourceKeys, registryErr := buildActiveSourceKeySet(cfg.SourcesPath)
	if registryErr != nil {
		slog.Warn("mapping sources loaded with warnings", "error", registryErr)
	}
	slog.Info("loaded active mapping sources", "count", len(activeSourceKeys), "keys", sortedMapKeys(activeSourceKeys))

	repo := repository.NewMappingSlotRepository(db)
	slot, err := repo.Load()
	if err != nil {
		slog.Error("failed to load mapping slot", "error", err)
		os.Exit(1)
	}
	if slot == nil {
		slog.Info("mapping slot is empty; nothing to clean")
		return
	}

	reason := staleReason(slot, activeSourceKeys, maxAge, time.Now().UTC())
	if reason == "" {
		slog.Info("mapping slot is current", "title_id", slot.TitleID, "updated_at", slot.UpdatedAt)
		return
	}

	slog.Info("stale mapping slot detected", "title_id", slot.TitleID, "reason", reason, "updated_at", slot.UpdatedAt)
	if !apply {
		slog.Info("dry-run complete", "would_clear", true)
		return
	}

	if err := repo.Clear(); err != nil {
		slog.Error("failed to clear mapping slot", "error", err)
		os.Exit(1)
	}
	slog.Info("cleanup completed", "cleared_title_id", slot.TitleID)
}

func buildActiveSourceKeySet(sourcesPath string) (map[string]struct{}, error) {
	registry, err := connectordefaults.NewRegistry(sourcesPath, nil)
	descriptors := registry.List()

	keys := make(map[string]struct{}, len(descriptors))
	for _, descriptor := range descriptors {
		key := normalizeSourceKey(descriptor.Key)
		if key == "" {
			continue
		}
		keys[key] = struct{}{}
	}

	return keys, err
}

// staleReason returns why the slot should be cleared, or "" when it is still usable.
// Cached misses are only aged out; they carry no source.
func staleReason(slot *models.MappingSlot, activeSourceKeys map[string]struct{}, maxAge time.Duration, now time.Time) string {
	if slot.Mapping != nil {
		key := normalizeSourceKey(slot.Mapping.Source)
		if _, ok := activeSourceKeys[key]; !ok {
			return "source " + key + " is no longer registered"
		}
	}
	if maxAge > 0 && !slot.UpdatedAt.IsZero() && now.Sub(slot.UpdatedAt) > maxAge {
		return "older than " + maxAge.String()
	}
	return ""
}

func normalizeSourceKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func sortedMapKeys(values map[string]struct{}) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

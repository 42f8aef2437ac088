package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment     string
	AppName         string
	Port            string
	LogLevel        slog.Level
	SQLitePath      string
	MigrationsPath  string
	SeedDefaultData bool
	SourcesPath     string

	CuratedAPIURL          string
	PrivateTrackerSentinel string
	IndexFeedURL           string
	IndexBaseURL           string
	IndexLookupsPerSecond  float64
	IndexLookupConcurrency int

	HostDebounce     time.Duration
	HostPollInterval time.Duration
	RunWebhookURL    string
	HTTPTimeout      time.Duration
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:     getEnv("APP_ENV", "development"),
		AppName:         getEnv("APP_NAME", "release-panels"),
		Port:            getEnv("APP_PORT", "8080"),
		SQLitePath:      getEnv("SQLITE_PATH", "./data/app.sqlite"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "./migrations"),
		SeedDefaultData: getEnvAsBool("SEED_DEFAULT_DATA", true),
		SourcesPath:     getEnv("SOURCES_PATH", "./sources"),

		CuratedAPIURL:          getEnv("CURATED_API_URL", "https://releases.moe/api/collections/entries/records"),
		PrivateTrackerSentinel: getEnv("PRIVATE_TRACKER_SENTINEL", "<redacted>"),
		IndexFeedURL:           getEnv("INDEX_FEED_URL", "https://feed.animetosho.org/json"),
		IndexBaseURL:           strings.TrimRight(getEnv("INDEX_BASE_URL", "https://nyaa.si"), "/"),
		IndexLookupsPerSecond:  getEnvAsFloat("INDEX_LOOKUP_RPS", 2),
		IndexLookupConcurrency: getEnvAsInt("INDEX_LOOKUP_CONCURRENCY", 1),

		HostDebounce:     time.Duration(getEnvAsInt("HOST_DEBOUNCE_MS", 60)) * time.Millisecond,
		HostPollInterval: time.Duration(getEnvAsInt("HOST_POLL_MS", 0)) * time.Millisecond,
		RunWebhookURL:    getEnv("RUN_WEBHOOK_URL", ""),
		HTTPTimeout:      time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 15)) * time.Second,
	}

	if cfg.IndexLookupsPerSecond < 0 {
		cfg.IndexLookupsPerSecond = 0
	}
	if cfg.IndexLookupConcurrency <= 0 {
		cfg.IndexLookupConcurrency = 1
	}
	if cfg.HostDebounce <= 0 {
		cfg.HostDebounce = 60 * time.Millisecond
	}
	if cfg.HostPollInterval < 0 {
		cfg.HostPollInterval = 0
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "INFO"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	return cfg, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q, expected DEBUG|INFO|WARN|ERROR", raw)
	}
}

func getEnv(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getEnvAsBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

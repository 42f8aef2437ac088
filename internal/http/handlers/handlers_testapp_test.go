package handlers_test

import (
	"context"
	"database/sql"
	"iter"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/gabriel/release-panels/internal/config"
	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gabriel/release-panels/internal/curated"
	"github.com/gabriel/release-panels/internal/database"
	"github.com/gabriel/release-panels/internal/host"
	apihttp "github.com/gabriel/release-panels/internal/http"
	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/repository"
	"github.com/gabriel/release-panels/internal/resolver"
	"github.com/gabriel/release-panels/internal/search"
	"github.com/gabriel/release-panels/internal/session"
	"github.com/gofiber/fiber/v2"
)

type fakeSource struct {
	key      string
	priority int
	mappings map[int64]*models.ExternalMapping
}

func (f *fakeSource) Key() string                       { return f.key }
func (f *fakeSource) Name() string                      { return "Fake " + f.key }
func (f *fakeSource) Kind() string                      { return connectors.KindNative }
func (f *fakeSource) Priority() int                     { return f.priority }
func (f *fakeSource) HealthCheck(context.Context) error { return nil }
func (f *fakeSource) LookupMapping(_ context.Context, titleID int64) (*models.ExternalMapping, error) {
	mapping, ok := f.mappings[titleID]
	if !ok {
		return nil, connectors.ErrNoMapping
	}
	copied := *mapping
	return &copied, nil
}

type fakeCurated struct {
	data map[int64]*models.CuratedReleaseData
}

func (f *fakeCurated) Fetch(_ context.Context, titleID int64) (*models.CuratedReleaseData, error) {
	data, ok := f.data[titleID]
	if !ok {
		return nil, curated.ErrNotFound
	}
	return data, nil
}

type fakeStreamer struct {
	mu      sync.Mutex
	results []models.IndexResult
	targets []search.Target
}

func (f *fakeStreamer) Stream(ctx context.Context, target search.Target) (iter.Seq2[models.IndexResult, error], error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.targets = append(f.targets, target)
	f.mu.Unlock()
	return func(yield func(models.IndexResult, error) bool) {
		for _, result := range f.results {
			if ctx.Err() != nil || !yield(result, nil) {
				return
			}
		}
	}, nil
}

type testEnv struct {
	db       *sql.DB
	app      *fiber.App
	services apihttp.Services
	streamer *fakeStreamer
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "migrations")
	if err := database.ApplyMigrations(db, migrationsPath); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		_ = db.Close()
		t.Fatalf("seed defaults: %v", err)
	}

	registry := connectors.NewRegistry()
	_ = registry.Register(&fakeSource{key: "zenshin", priority: 20})
	_ = registry.Register(&fakeSource{key: "anizip", priority: 10, mappings: map[int64]*models.ExternalMapping{
		154587: {
			ExternalID: "17617",
			Episodes: []models.EpisodeRef{
				{EpisodeNumber: "2", ExternalEpisodeID: "271657"},
				{EpisodeNumber: "1", ExternalEpisodeID: "271656"},
				{EpisodeNumber: "S1", ExternalEpisodeID: "280001"},
			},
		},
	}})

	streamer := &fakeStreamer{results: []models.IndexResult{
		{ReleaseName: "[SubsPlease] Frieren - 01 (1080p)", Magnet: "magnet:?xt=urn:btih:aaa", Seeders: "312", FileSize: "1.4 GiB", Date: "2023-09-29 12:20 UTC"},
		{ReleaseName: "[Erai-raws] Frieren - 01 (720p)", Magnet: "magnet:?xt=urn:btih:bbb", Seeders: "40", FileSize: "700.0 MiB", Date: "2023-09-29 13:00 UTC"},
		{ReleaseName: "Dead torrent", Magnet: "magnet:?xt=urn:btih:ccc", Seeders: "0"},
	}}

	sess := session.New(session.Config{
		Resolver:    resolver.New(registry, nil),
		Searcher:    streamer,
		Slots:       repository.NewMappingSlotRepository(db),
		Preferences: repository.NewPreferencesRepository(db),
	})
	source := &fakeCurated{data: map[int64]*models.CuratedReleaseData{
		154587: {
			Comparison: "https://example.org/compare",
			Releases: []models.CuratedRelease{
				{ReleaseGroup: "SubsPlease", Tracker: "Nyaa", URL: "https://nyaa.si/view/1", FileSize: "1.4 GiB", Tags: []string{}},
			},
		},
	}}
	page := host.NewPage()
	controller := session.NewController(page, sess, source, nil, session.ControllerConfig{}, nil)

	services := apihttp.Services{
		Sources:    registry,
		Curated:    source,
		Session:    sess,
		Page:       page,
		Controller: controller,
	}
	cfg := config.Config{AppName: "test-app", IndexBaseURL: "https://nyaa.si"}
	app := apihttp.NewServerWithServices(cfg, db, services)

	t.Cleanup(func() {
		sess.Stop()
		_ = app.Shutdown()
		_ = db.Close()
	})

	return &testEnv{db: db, app: app, services: services, streamer: streamer}
}

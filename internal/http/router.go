package http

import (
	"database/sql"
	"log/slog"

	"github.com/gabriel/release-panels/internal/config"
	"github.com/gabriel/release-panels/internal/http/handlers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func NewServer(cfg config.Config, db *sql.DB) *fiber.App {
	services, err := NewServices(cfg, db, slog.Default())
	if err != nil {
		slog.Warn("mapping sources loaded with warnings", "error", err)
	}
	return NewServerWithServices(cfg, db, services)
}

func NewServerWithServices(cfg config.Config, db *sql.DB, services Services) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())

	health := handlers.NewHealthHandler(db, services.Sources)
	sources := handlers.NewSourcesHandler(services.Sources)
	titles := handlers.NewTitlesHandler(services.Curated, services.Session, cfg.HTTPTimeout)
	searches := handlers.NewSearchHandler(services.Session, cfg.IndexBaseURL)

	var refresher handlers.Refresher
	if services.Controller != nil {
		refresher = services.Controller
	}
	hostPage := handlers.NewHostHandler(services.Page, refresher)

	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Get("/sources", sources.List)
	v1.Get("/sources/health", sources.Health)
	v1.Get("/titles/:id/curated", titles.Curated)
	v1.Get("/titles/:id/mapping", titles.Mapping)
	v1.Get("/titles/:id/episodes", titles.Episodes)
	v1.Post("/titles/:id/search", titles.Search)
	v1.Post("/search/stop", searches.Stop)
	v1.Put("/search/sort", searches.Sort)
	v1.Put("/search/filter", searches.Filter)
	v1.Get("/search", searches.Status)
	v1.Get("/search/results/:index", searches.Result)
	v1.Get("/rss", searches.RSS)
	v1.Post("/host/navigate", hostPage.Navigate)
	v1.Post("/host/mutate", hostPage.Mutate)
	v1.Get("/host", hostPage.Get)

	return app
}

package handlers

import (
	"database/sql"
	"time"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	db      *sql.DB
	sources *connectors.Registry
}

func NewHealthHandler(db *sql.DB, sources *connectors.Registry) *HealthHandler {
	return &HealthHandler{db: db, sources: sources}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	sourceCount := 0
	if h.sources != nil {
		sourceCount = len(h.sources.List())
	}

	if h.db == nil || h.db.Ping() != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status":  "degraded",
			"db":      "down",
			"sources": sourceCount,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{
		"status":  "ok",
		"db":      "up",
		"sources": sourceCount,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

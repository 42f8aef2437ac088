package handlers

import (
	"context"
	"time"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gofiber/fiber/v2"
)

// SourcesHandler exposes the identifier-mapping sources in fallback order.
type SourcesHandler struct {
	registry *connectors.Registry
}

func NewSourcesHandler(registry *connectors.Registry) *SourcesHandler {
	return &SourcesHandler{registry: registry}
}

func (h *SourcesHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"items": h.registry.List()})
}

func (h *SourcesHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()
	return c.JSON(fiber.Map{"items": h.registry.Health(ctx)})
}

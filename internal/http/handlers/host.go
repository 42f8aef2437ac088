package handlers

import (
	"context"
	"strings"

	"github.com/gabriel/release-panels/internal/host"
	"github.com/gofiber/fiber/v2"
)

// Refresher runs a synchronous reconcile pass.
type Refresher interface {
	Refresh(ctx context.Context)
}

type navigateRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type mutateRequest struct {
	Selector string `json:"selector"`
	HTML     string `json:"html"`
}

type HostHandler struct {
	page      *host.Page
	refresher Refresher
}

func NewHostHandler(page *host.Page, refresher Refresher) *HostHandler {
	return &HostHandler{page: page, refresher: refresher}
}

func (h *HostHandler) Navigate(c *fiber.Ctx) error {
	var req navigateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	if strings.TrimSpace(req.URL) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "url is required"})
	}

	if err := h.page.Navigate(req.URL, req.HTML); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	h.refresh(c)

	titleID, ok := h.page.TitleID()
	return c.JSON(fiber.Map{
		"titleId":   titleID,
		"titlePage": ok,
		"version":   h.page.Version(),
	})
}

func (h *HostHandler) Mutate(c *fiber.Ctx) error {
	var req mutateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	if strings.TrimSpace(req.Selector) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "selector is required"})
	}

	replaced, err := h.page.Replace(req.Selector, req.HTML)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}
	h.refresh(c)

	return c.JSON(fiber.Map{"replaced": replaced, "version": h.page.Version()})
}

func (h *HostHandler) Get(c *fiber.Ctx) error {
	markup, err := h.page.Render()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to render host page"})
	}
	c.Type("html", "utf-8")
	return c.SendString(markup)
}

func (h *HostHandler) refresh(c *fiber.Ctx) {
	if h.refresher == nil {
		return
	}
	h.refresher.Refresh(c.UserContext())
}

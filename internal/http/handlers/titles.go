package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gabriel/release-panels/internal/curated"
	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/session"
	"github.com/gofiber/fiber/v2"
)

type CuratedFetcher interface {
	Fetch(ctx context.Context, titleID int64) (*models.CuratedReleaseData, error)
}

type startSearchRequest struct {
	Mode    string `json:"mode"`
	Episode string `json:"episode"`
}

type TitlesHandler struct {
	curated CuratedFetcher
	session *session.Session
	timeout time.Duration
}

func NewTitlesHandler(source CuratedFetcher, sess *session.Session, timeout time.Duration) *TitlesHandler {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &TitlesHandler{curated: source, session: sess, timeout: timeout}
}

func (h *TitlesHandler) Curated(c *fiber.Ctx) error {
	titleID, err := parseTitleID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	data, err := h.curated.Fetch(ctx, titleID)
	if err != nil {
		if errors.Is(err, curated.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "No curated releases"})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "failed to fetch curated releases"})
	}

	return c.JSON(data)
}

func (h *TitlesHandler) Mapping(c *fiber.Ctx) error {
	titleID, err := parseTitleID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	mapping, err := h.session.Mapping(ctx, titleID)
	if err != nil {
		return mappingError(c, err)
	}

	return c.JSON(mapping)
}

func (h *TitlesHandler) Episodes(c *fiber.Ctx) error {
	titleID, err := parseTitleID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)
	defer cancel()

	episodes, err := h.session.Episodes(ctx, titleID)
	if err != nil {
		return mappingError(c, err)
	}

	return c.JSON(fiber.Map{"items": episodes})
}

// Search starts a run for the title, or stops the active one.
func (h *TitlesHandler) Search(c *fiber.Ctx) error {
	titleID, err := parseTitleID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	var req startSearchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
		}
	}

	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	status, err := h.session.StartSearch(ctx, session.SearchRequest{TitleID: titleID, Mode: mode, Episode: req.Episode})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNoEpisodeSelected):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": session.UserMessage(err)})
		case errors.Is(err, session.ErrNoMapping):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": session.UserMessage(err)})
		default:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": session.UserMessage(err)})
		}
	}

	if status.Running() {
		return c.Status(fiber.StatusAccepted).JSON(status)
	}
	return c.JSON(status)
}

func mappingError(c *fiber.Ctx, err error) error {
	if errors.Is(err, session.ErrNoMapping) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": session.UserMessage(err)})
	}
	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"message": "failed to resolve mapping"})
}

func parseTitleID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid title id")
	}
	return id, nil
}

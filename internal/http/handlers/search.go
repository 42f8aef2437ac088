package handlers

import (
	"strconv"
	"strings"

	"github.com/gabriel/release-panels/internal/mergestore"
	"github.com/gabriel/release-panels/internal/render"
	"github.com/gabriel/release-panels/internal/search"
	"github.com/gabriel/release-panels/internal/session"
	"github.com/gofiber/fiber/v2"
)

type sortRequest struct {
	Criteria string `json:"criteria"`
}

type filterRequest struct {
	Text string `json:"text"`
	Mode string `json:"mode"`
}

type SearchHandler struct {
	session      *session.Session
	indexBaseURL string
}

func NewSearchHandler(sess *session.Session, indexBaseURL string) *SearchHandler {
	if strings.TrimSpace(indexBaseURL) == "" {
		indexBaseURL = search.DefaultIndexBaseURL
	}
	return &SearchHandler{session: sess, indexBaseURL: indexBaseURL}
}

func (h *SearchHandler) Stop(c *fiber.Ctx) error {
	return c.JSON(h.session.Stop())
}

func (h *SearchHandler) Sort(c *fiber.Ctx) error {
	var req sortRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	criteria, err := mergestore.ParseCriteria(req.Criteria)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	h.session.ChangeSort(criteria)
	return c.JSON(panelPayload(h.session.Panel()))
}

func (h *SearchHandler) Filter(c *fiber.Ctx) error {
	var req filterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid json body"})
	}
	mode, err := mergestore.ParseFilterMode(req.Mode)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	h.session.SetFilter(req.Text, mode)
	return c.JSON(panelPayload(h.session.Panel()))
}

func (h *SearchHandler) Status(c *fiber.Ctx) error {
	return c.JSON(panelPayload(h.session.Panel()))
}

// Result returns one stored result by its stable index. With format=html it returns the
// rendered card details instead.
func (h *SearchHandler) Result(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid result index"})
	}

	result, ok := h.session.Result(index)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "result not found"})
	}

	if c.Query("format") == "html" {
		node, err := render.CardDetails(result)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to render result"})
		}
		markup, err := render.HTML(node)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "failed to render result"})
		}
		c.Type("html", "utf-8")
		return c.SendString(markup)
	}

	return c.JSON(result)
}

func (h *SearchHandler) RSS(c *fiber.Ctx) error {
	submitter := strings.TrimSpace(c.Query("submitter"))
	query := strings.TrimSpace(c.Query("q"))
	if submitter == "" && query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "submitter or q is required"})
	}
	return c.JSON(fiber.Map{"url": search.RSSURL(h.indexBaseURL, submitter, query)})
}

func panelPayload(state session.PanelState) fiber.Map {
	items := state.Items
	if items == nil {
		items = []mergestore.Item{}
	}
	return fiber.Map{
		"status":   state.Status,
		"mode":     state.Mode,
		"episode":  state.SelectedEpisode,
		"criteria": state.Criteria,
		"filter": fiber.Map{
			"text": state.FilterText,
			"mode": state.FilterMode,
		},
		"items": items,
	}
}

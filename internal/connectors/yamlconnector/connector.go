package yamlconnector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gabriel/release-panels/internal/models"
)

const maxPayloadBytes = 4 << 20

type Connector struct {
	config     Config
	httpClient *http.Client
}

func NewConnector(cfg Config, client *http.Client) (*Connector, error) {
	if err := cfg.normalizeAndValidate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Connector{config: cfg, httpClient: client}, nil
}

func (c *Connector) Key() string {
	return c.config.Key
}

func (c *Connector) Name() string {
	return c.config.Name
}

func (c *Connector) Kind() string {
	return connectors.KindYAML
}

func (c *Connector) Priority() int {
	return c.config.Priority
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	endpoint := c.config.HealthURL
	if endpoint == "" {
		endpoint = c.endpointFor(1)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request health: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", res.StatusCode)
	}

	return nil
}

func (c *Connector) LookupMapping(ctx context.Context, titleID int64) (*models.ExternalMapping, error) {
	if titleID <= 0 {
		return nil, fmt.Errorf("invalid title id %d", titleID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpointFor(titleID), nil)
	if err != nil {
		return nil, fmt.Errorf("create mapping request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request mapping: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("mapping endpoint status: %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxPayloadBytes))
	if err != nil {
		return nil, fmt.Errorf("read mapping payload: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("mapping payload is not valid json")
	}

	return c.mapPayload(titleID, body)
}

func (c *Connector) mapPayload(titleID int64, body []byte) (*models.ExternalMapping, error) {
	externalID := strings.TrimSpace(gjson.GetBytes(body, c.config.Response.ExternalIDPath).String())
	if externalID == "" || externalID == "0" {
		return nil, connectors.ErrNoMapping
	}

	rawEpisodes := gjson.GetBytes(body, c.config.Response.EpisodesPath)
	if !rawEpisodes.IsObject() && !rawEpisodes.IsArray() {
		return nil, connectors.ErrNoMapping
	}

	episodes := make([]models.EpisodeRef, 0)
	rawEpisodes.ForEach(func(_, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}
		episodes = append(episodes, models.EpisodeRef{
			EpisodeNumber:     strings.TrimSpace(value.Get(c.config.Response.EpisodeNumberField).String()),
			ExternalEpisodeID: strings.TrimSpace(value.Get(c.config.Response.EpisodeIDField).String()),
			Title:             strings.TrimSpace(value.Get(c.config.Response.EpisodeTitlePath).String()),
		})
		return true
	})

	return &models.ExternalMapping{
		TitleID:    titleID,
		ExternalID: externalID,
		Source:     c.config.Key,
		Episodes:   episodes,
	}, nil
}

func (c *Connector) endpointFor(titleID int64) string {
	return strings.ReplaceAll(c.config.URLTemplate, idPlaceholder, strconv.FormatInt(titleID, 10))
}

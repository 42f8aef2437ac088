package animappings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gabriel/release-panels/internal/models"
)

// healthProbeTitleID is a long-lived catalogue entry every mapping service knows.
const healthProbeTitleID = 1

// Connector talks to services exposing GET /mappings?anilist_id={id} with a
// {mappings: {anidb_id}, episodes: {key: {episode, anidbEid, title: {en}}}} payload.
type Connector struct {
	key        string
	name       string
	baseURL    string
	priority   int
	httpClient *http.Client
}

func NewAniZip() *Connector {
	return NewConnectorWithOptions("anizip", "ani.zip", "https://api.ani.zip", 10, nil)
}

func NewZenshin() *Connector {
	return NewConnectorWithOptions("zenshin", "Zenshin", "https://zenshin-supabase-api.onrender.com", 20, nil)
}

func NewConnectorWithOptions(key, name, baseURL string, priority int, client *http.Client) *Connector {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Connector{
		key:        key,
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		priority:   priority,
		httpClient: client,
	}
}

func (c *Connector) Key() string {
	return c.key
}

func (c *Connector) Name() string {
	return c.name
}

func (c *Connector) Kind() string {
	return connectors.KindNative
}

func (c *Connector) Priority() int {
	return c.priority
}

func (c *Connector) BaseURL() string {
	return c.baseURL
}

func (c *Connector) HealthCheck(ctx context.Context) error {
	if _, err := c.fetch(ctx, healthProbeTitleID); err != nil {
		return fmt.Errorf("fetch mapping: %w", err)
	}
	return nil
}

func (c *Connector) LookupMapping(ctx context.Context, titleID int64) (*models.ExternalMapping, error) {
	if titleID <= 0 {
		return nil, fmt.Errorf("invalid title id %d", titleID)
	}

	payload, err := c.fetch(ctx, titleID)
	if err != nil {
		return nil, err
	}

	externalID := strings.TrimSpace(string(payload.Mappings.AnidbID))
	// an empty episodes object is still a mapping; only an absent one is a miss
	if externalID == "" || externalID == "0" || payload.Episodes == nil {
		return nil, connectors.ErrNoMapping
	}

	keys := make([]string, 0, len(payload.Episodes))
	for key := range payload.Episodes {
		keys = append(keys, key)
	}
	sortEpisodeKeys(keys)

	episodes := make([]models.EpisodeRef, 0, len(keys))
	for _, key := range keys {
		ep := payload.Episodes[key]
		episodes = append(episodes, models.EpisodeRef{
			EpisodeNumber:     strings.TrimSpace(string(ep.Episode)),
			ExternalEpisodeID: strings.TrimSpace(string(ep.AnidbEid)),
			Title:             strings.TrimSpace(ep.Title.En),
		})
	}

	return &models.ExternalMapping{
		TitleID:    titleID,
		ExternalID: externalID,
		Source:     c.key,
		Episodes:   episodes,
	}, nil
}

func (c *Connector) fetch(ctx context.Context, titleID int64) (*mappingResponse, error) {
	endpoint := c.baseURL + "/mappings?anilist_id=" + strconv.FormatInt(titleID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

	var payload mappingResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode mapping payload: %w", err)
	}
	return &payload, nil
}

// Numeric keys first in numeric order, then the rest (specials, credits) lexically.
func sortEpisodeKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, aErr := strconv.Atoi(keys[i])
		b, bErr := strconv.Atoi(keys[j])
		switch {
		case aErr == nil && bErr == nil:
			return a < b
		case aErr == nil:
			return true
		case bErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
}

// flexString accepts either a JSON string or a JSON number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*f = flexString(value)
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*f = flexString(number.String())
	return nil
}

type mappingResponse struct {
	Mappings struct {
		AnidbID flexString `json:"anidb_id"`
	} `json:"mappings"`
	Episodes map[string]struct {
		Episode  flexString `json:"episode"`
		AnidbEid flexString `json:"anidbEid"`
		Title    struct {
			En string `json:"en"`
		} `json:"title"`
	} `json:"episodes"`
}

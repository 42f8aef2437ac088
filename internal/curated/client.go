package curated

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/sizeutil"
)

const (
	DefaultBaseURL         = "https://releases.moe/api/collections/entries/records"
	DefaultPrivateSentinel = "<redacted>"
)

// ErrNotFound means the curated collection has no entry for the title.
var ErrNotFound = errors.New("no curated releases")

type Client struct {
	baseURL         string
	privateSentinel string
	httpClient      *http.Client
}

func NewClient() *Client {
	return NewClientWithOptions(DefaultBaseURL, DefaultPrivateSentinel, nil)
}

func NewClientWithOptions(baseURL, privateSentinel string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if privateSentinel == "" {
		privateSentinel = DefaultPrivateSentinel
	}
	return &Client{
		baseURL:         strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		privateSentinel: privateSentinel,
		httpClient:      client,
	}
}

// Fetch returns the curated releases for a title. Non-2xx responses are transport errors.
func (c *Client) Fetch(ctx context.Context, titleID int64) (*models.CuratedReleaseData, error) {
	values := url.Values{}
	values.Set("filter", "alID="+strconv.FormatInt(titleID, 10))
	values.Set("expand", "trs")
	endpoint := c.baseURL + "?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create curated request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request curated releases: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("curated endpoint status: %d", res.StatusCode)
	}

	var payload recordsResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode curated payload: %w", err)
	}
	if len(payload.Items) == 0 {
		return nil, ErrNotFound
	}

	return c.mapEntry(payload.Items[0]), nil
}

func (c *Client) mapEntry(item recordItem) *models.CuratedReleaseData {
	data := &models.CuratedReleaseData{
		Comparison:      item.Comparison,
		Notes:           item.Notes,
		TheoreticalBest: item.TheoreticalBest,
		Releases:        make([]models.CuratedRelease, 0, len(item.Expand.Trs)),
	}

	for _, entry := range item.Expand.Trs {
		var total int64
		episodes := make([]models.CuratedFile, 0, len(entry.Files))
		for _, file := range entry.Files {
			length := int64(file.Length)
			total += length
			episodes = append(episodes, models.CuratedFile{
				Name: file.Name,
				Size: sizeutil.FormatBytes(length),
			})
		}

		tags := entry.Tags
		if tags == nil {
			tags = []string{}
		}

		data.Releases = append(data.Releases, models.CuratedRelease{
			Tracker:        entry.Tracker,
			ReleaseGroup:   entry.ReleaseGroup,
			URL:            entry.URL,
			DualAudio:      entry.DualAudio,
			IsBest:         entry.IsBest,
			PrivateTracker: entry.InfoHash == c.privateSentinel,
			Tags:           tags,
			FileSize:       sizeutil.FormatBytes(total),
			EpisodeList:    episodes,
		})
	}

	return data
}

type recordsResponse struct {
	Items []recordItem `json:"items"`
}

type recordItem struct {
	Comparison      string `json:"comparison"`
	Notes           string `json:"notes"`
	TheoreticalBest string `json:"theoreticalBest"`
	Expand          struct {
		Trs []struct {
			Tracker      string   `json:"tracker"`
			ReleaseGroup string   `json:"releaseGroup"`
			URL          string   `json:"url"`
			DualAudio    bool     `json:"dualAudio"`
			IsBest       bool     `json:"isBest"`
			InfoHash     string   `json:"infoHash"`
			Tags         []string `json:"tags"`
			Files        []struct {
				Name   string  `json:"name"`
				Length float64 `json:"length"`
			} `json:"files"`
		} `json:"trs"`
	} `json:"expand"`
}

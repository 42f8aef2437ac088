package fetchproxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Result mirrors what a privileged background fetcher hands back to a page
// context: the body as text plus the address it ended up at after redirects.
type Result struct {
	OK       bool   `json:"ok"`
	Status   int    `json:"status"`
	Text     string `json:"text,omitempty"`
	FinalURL string `json:"url,omitempty"`
	Error    string `json:"error,omitempty"`
}

type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) Result
}

type HTTPFetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
}

const defaultMaxBytes = 8 << 20

func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{
		httpClient: client,
		userAgent:  "release-panels/1.0",
		maxBytes:   defaultMaxBytes,
	}
}

func (f *HTTPFetcher) FetchText(ctx context.Context, rawURL string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	res, err := f.httpClient.Do(req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, f.maxBytes))
	if err != nil {
		return Result{Status: res.StatusCode, Error: fmt.Sprintf("read body: %v", err)}
	}

	finalURL := rawURL
	if res.Request != nil && res.Request.URL != nil {
		finalURL = res.Request.URL.String()
	}

	return Result{
		OK:       res.StatusCode >= 200 && res.StatusCode < 300,
		Status:   res.StatusCode,
		Text:     string(body),
		FinalURL: finalURL,
	}
}

// Err converts a failed result into an error; nil when the fetch succeeded.
func (r Result) Err() error {
	if r.Error != "" {
		return fmt.Errorf("fetch: %s", r.Error)
	}
	if !r.OK {
		return fmt.Errorf("fetch: status %d", r.Status)
	}
	return nil
}

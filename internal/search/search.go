package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/gabriel/release-panels/internal/fetchproxy"
	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/scraper"
	"github.com/gabriel/release-panels/internal/sizeutil"
)

// ErrInvalidTarget is a usage error: a target must carry exactly one identifier.
var ErrInvalidTarget = errors.New("exactly one of external id or external episode id is required")

const (
	DefaultFeedURL      = "https://feed.animetosho.org/json"
	DefaultIndexBaseURL = "https://nyaa.si"
)

// Target selects either a whole title or a single episode.
type Target struct {
	ExternalID        string `json:"externalId,omitempty"`
	ExternalEpisodeID string `json:"externalEpisodeId,omitempty"`
}

func (t Target) Validate() error {
	hasTitle := strings.TrimSpace(t.ExternalID) != ""
	hasEpisode := strings.TrimSpace(t.ExternalEpisodeID) != ""
	if hasTitle == hasEpisode {
		return ErrInvalidTarget
	}
	return nil
}

func (t Target) feedQuery() string {
	values := url.Values{}
	if id := strings.TrimSpace(t.ExternalEpisodeID); id != "" {
		values.Set("eid", id)
	} else {
		values.Set("aid", strings.TrimSpace(t.ExternalID))
	}
	return values.Encode()
}

type Options struct {
	FeedURL          string
	IndexBaseURL     string
	LookupsPerSecond float64
	Concurrency      int
	Logger           *slog.Logger
}

type Searcher struct {
	fetcher      fetchproxy.Fetcher
	feedURL      string
	indexBaseURL string
	limiter      *rate.Limiter
	concurrency  int
	logger       *slog.Logger
}

func New(fetcher fetchproxy.Fetcher, opts Options) *Searcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if strings.TrimSpace(opts.FeedURL) == "" {
		opts.FeedURL = DefaultFeedURL
	}
	if strings.TrimSpace(opts.IndexBaseURL) == "" {
		opts.IndexBaseURL = DefaultIndexBaseURL
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	var limiter *rate.Limiter
	if opts.LookupsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.LookupsPerSecond), 1)
	}

	return &Searcher{
		fetcher:      fetcher,
		feedURL:      strings.TrimRight(strings.TrimSpace(opts.FeedURL), "/?"),
		indexBaseURL: strings.TrimRight(strings.TrimSpace(opts.IndexBaseURL), "/"),
		limiter:      limiter,
		concurrency:  opts.Concurrency,
		logger:       opts.Logger,
	}
}

// Stream validates the target and returns a lazy, single-use sequence of accepted index
// entries in feed order. The sequence ends quietly once ctx is cancelled. A feed failure
// is yielded once as an error and ends the sequence; per-candidate failures are skipped.
func (s *Searcher) Stream(ctx context.Context, target Target) (iter.Seq2[models.IndexResult, error], error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	return func(yield func(models.IndexResult, error) bool) {
		if ctx.Err() != nil {
			return
		}

		hashes, err := s.fetchCandidates(ctx, target)
		if err != nil {
			if ctx.Err() == nil {
				yield(models.IndexResult{}, err)
			}
			return
		}
		s.logger.Debug("candidate feed loaded", "candidates", len(hashes), "externalId", target.ExternalID, "externalEpisodeId", target.ExternalEpisodeID)

		if s.concurrency <= 1 {
			s.streamSequential(ctx, hashes, yield)
			return
		}
		s.streamPrefetch(ctx, hashes, yield)
	}, nil
}

// LookupURL is the index search address that resolves a fingerprint to its entry page.
func (s *Searcher) LookupURL(infoHash string) string {
	return s.indexBaseURL + "/?q=" + url.QueryEscape(strings.TrimSpace(infoHash))
}

func (s *Searcher) streamSequential(ctx context.Context, hashes []string, yield func(models.IndexResult, error) bool) {
	for _, hash := range hashes {
		if ctx.Err() != nil {
			return
		}
		result, ok := s.lookup(ctx, hash)
		if !ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if !yield(result, nil) {
			return
		}
	}
}

type lookupOutcome struct {
	result models.IndexResult
	ok     bool
}

// streamPrefetch runs up to s.concurrency lookups ahead of the consumer but still yields
// strictly in feed order.
func (s *Searcher) streamPrefetch(ctx context.Context, hashes []string, yield func(models.IndexResult, error) bool) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	slots := make([]chan lookupOutcome, len(hashes))
	for i := range slots {
		slots[i] = make(chan lookupOutcome, 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	go func() {
		for i, hash := range hashes {
			if gctx.Err() != nil {
				slots[i] <- lookupOutcome{}
				continue
			}
			g.Go(func() error {
				result, ok := s.lookup(gctx, hash)
				slots[i] <- lookupOutcome{result: result, ok: ok}
				return nil
			})
		}
		_ = g.Wait()
	}()

	for i := range hashes {
		var outcome lookupOutcome
		select {
		case <-ctx.Done():
			return
		case outcome = <-slots[i]:
		}
		if !outcome.ok {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if !yield(outcome.result, nil) {
			return
		}
	}
}

func (s *Searcher) lookup(ctx context.Context, hash string) (models.IndexResult, bool) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return models.IndexResult{}, false
		}
	}

	lookupURL := s.LookupURL(hash)
	res := s.fetcher.FetchText(ctx, lookupURL)
	if err := res.Err(); err != nil {
		s.logger.Debug("index lookup failed", "infoHash", hash, "error", err)
		return models.IndexResult{}, false
	}

	result, err := scraper.ParseString(res.Text)
	if err != nil {
		s.logger.Debug("index entry skipped", "infoHash", hash, "error", err)
		return models.IndexResult{}, false
	}
	if sizeutil.ParseCount(result.Seeders) <= 0 {
		return models.IndexResult{}, false
	}

	result.URL = res.FinalURL
	if result.URL == "" {
		result.URL = lookupURL
	}
	return result, true
}

type feedEntry struct {
	InfoHash string `json:"info_hash"`
}

func (s *Searcher) fetchCandidates(ctx context.Context, target Target) ([]string, error) {
	endpoint := s.feedURL + "?" + target.feedQuery()
	res := s.fetcher.FetchText(ctx, endpoint)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("fetch candidate feed: %w", err)
	}

	var entries []feedEntry
	if err := json.Unmarshal([]byte(res.Text), &entries); err != nil {
		s.logger.Warn("candidate feed is not a list", "url", endpoint, "error", err)
		return []string{}, nil
	}

	hashes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if hash := strings.TrimSpace(entry.InfoHash); hash != "" {
			hashes = append(hashes, hash)
		}
	}
	return hashes, nil
}

// RSSURL builds the index RSS feed address for a submitter and/or query. Runs of
// whitespace become '+'.
func RSSURL(baseURL, submitter, query string) string {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultIndexBaseURL
	}
	rss := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/?page=rss"
	if user := plusJoin(submitter); user != "" {
		rss += "&u=" + user
	}
	if q := plusJoin(query); q != "" {
		rss += "&q=" + q
	}
	return rss
}

func plusJoin(value string) string {
	fields := strings.Fields(value)
	for i, field := range fields {
		fields[i] = url.QueryEscape(field)
	}
	return strings.Join(fields, "+")
}

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/gabriel/release-panels/internal/fetchproxy"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]fetchproxy.Result
	calls     []string
}

func (f *fakeFetcher) FetchText(_ context.Context, rawURL string) fetchproxy.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if res, ok := f.responses[rawURL]; ok {
		return res
	}
	return fetchproxy.Result{Status: 404}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func entryPage(name, seeders string) string {
	return fmt.Sprintf(`<html><head><title>%s :: Nyaa</title></head><body>
<div class="panel-body">
<div class="row"><div>Seeders:</div><div>%s</div><div>File size:</div><div>1.0 GiB</div></div>
</div>
<div class="panel-footer clearfix"><a href="magnet:?xt=urn:btih:%s">Magnet</a></div>
</body></html>`, name, seeders, name)
}

func newFixture(feed string, pages map[string]string) *fakeFetcher {
	responses := map[string]fetchproxy.Result{
		"https://feed.test/json?aid=17617": {OK: true, Status: 200, Text: feed},
	}
	for hash, body := range pages {
		responses["https://index.test/?q="+hash] = fetchproxy.Result{
			OK:       true,
			Status:   200,
			Text:     body,
			FinalURL: "https://index.test/view/" + hash,
		}
	}
	return &fakeFetcher{responses: responses}
}

func newSearcher(fetcher fetchproxy.Fetcher, concurrency int) *Searcher {
	return New(fetcher, Options{
		FeedURL:      "https://feed.test/json",
		IndexBaseURL: "https://index.test/",
		Concurrency:  concurrency,
	})
}

func TestStreamRejectsInvalidTargetBeforeFetching(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := newSearcher(fetcher, 1)

	for _, target := range []Target{{}, {ExternalID: "1", ExternalEpisodeID: "2"}, {ExternalID: "  "}} {
		seq, err := s.Stream(context.Background(), target)
		if !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("expected ErrInvalidTarget for %+v, got %v", target, err)
		}
		if seq != nil {
			t.Fatalf("expected nil sequence for invalid target")
		}
	}
	if fetcher.callCount() != 0 {
		t.Fatalf("expected no fetches, got %d", fetcher.callCount())
	}
}

func TestStreamYieldsSeededEntriesInFeedOrder(t *testing.T) {
	feed := `[{"info_hash":"aaa"},{"info_hash":""},{"info_hash":"zero"},{"info_hash":"broken"},{"info_hash":"missing"},{"info_hash":"bbb"}]`
	fetcher := newFixture(feed, map[string]string{
		"aaa":    entryPage("aaa", "5"),
		"zero":   entryPage("zero", "0"),
		"broken": "<html><body>no magnet here</body></html>",
		"bbb":    entryPage("bbb", "12"),
	})

	seq, err := newSearcher(fetcher, 1).Stream(context.Background(), Target{ExternalID: "17617"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	names := make([]string, 0)
	for result, err := range seq {
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		names = append(names, result.ReleaseName)
		if result.URL != "https://index.test/view/"+result.ReleaseName {
			t.Fatalf("expected final url to be recorded, got %s", result.URL)
		}
	}

	if strings.Join(names, ",") != "aaa,bbb" {
		t.Fatalf("expected aaa,bbb got %s", strings.Join(names, ","))
	}
	// feed + five non-empty fingerprints
	if fetcher.callCount() != 6 {
		t.Fatalf("expected 6 fetches, got %d", fetcher.callCount())
	}
}

func TestStreamUsesEpisodeQuery(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fetchproxy.Result{
		"https://feed.test/json?eid=277518": {OK: true, Status: 200, Text: `[]`},
	}}

	seq, err := newSearcher(fetcher, 1).Stream(context.Background(), Target{ExternalEpisodeID: "277518"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	for _, err := range seq {
		t.Fatalf("expected empty stream, got err=%v", err)
	}
	if fetcher.callCount() != 1 {
		t.Fatalf("expected only the feed fetch, got %d", fetcher.callCount())
	}
}

func TestStreamStopsAfterCancellation(t *testing.T) {
	feed := `[{"info_hash":"a1"},{"info_hash":"a2"},{"info_hash":"a3"},{"info_hash":"a4"}]`
	fetcher := newFixture(feed, map[string]string{
		"a1": entryPage("a1", "1"),
		"a2": entryPage("a2", "2"),
		"a3": entryPage("a3", "3"),
		"a4": entryPage("a4", "4"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seq, err := newSearcher(fetcher, 1).Stream(ctx, Target{ExternalID: "17617"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	count := 0
	for _, err := range seq {
		if err != nil {
			t.Fatalf("cancellation must not surface as an error: %v", err)
		}
		count++
		if count == 1 {
			cancel()
		}
	}
	if count != 1 {
		t.Fatalf("expected 1 result before cancellation, got %d", count)
	}
	// feed + the single lookup that produced the first result
	if fetcher.callCount() != 2 {
		t.Fatalf("expected 2 fetches, got %d", fetcher.callCount())
	}
}

func TestStreamReportsFeedFailure(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]fetchproxy.Result{
		"https://feed.test/json?aid=17617": {Status: 502},
	}}

	seq, err := newSearcher(fetcher, 1).Stream(context.Background(), Target{ExternalID: "17617"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	errs := 0
	for _, err := range seq {
		if err == nil {
			t.Fatalf("expected only an error from a failed feed")
		}
		errs++
	}
	if errs != 1 {
		t.Fatalf("expected exactly one error, got %d", errs)
	}
}

func TestStreamTreatsNonListFeedAsEmpty(t *testing.T) {
	fetcher := newFixture(`{"error":"unknown id"}`, nil)

	seq, err := newSearcher(fetcher, 1).Stream(context.Background(), Target{ExternalID: "17617"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	for _, err := range seq {
		t.Fatalf("expected empty stream, got err=%v", err)
	}
}

func TestStreamPrefetchKeepsFeedOrder(t *testing.T) {
	hashes := []string{"h1", "h2", "h3", "h4", "h5", "h6", "h7", "h8"}
	pages := map[string]string{}
	parts := make([]string, 0, len(hashes))
	for i, hash := range hashes {
		pages[hash] = entryPage(hash, fmt.Sprint(i+1))
		parts = append(parts, fmt.Sprintf(`{"info_hash":%q}`, hash))
	}
	fetcher := newFixture("["+strings.Join(parts, ",")+"]", pages)

	seq, err := newSearcher(fetcher, 3).Stream(context.Background(), Target{ExternalID: "17617"})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	got := make([]string, 0, len(hashes))
	for result, err := range seq {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, result.ReleaseName)
	}
	if strings.Join(got, ",") != strings.Join(hashes, ",") {
		t.Fatalf("expected feed order %v, got %v", hashes, got)
	}
}

func TestRSSURL(t *testing.T) {
	tests := []struct {
		submitter string
		query     string
		want      string
	}{
		{"", "", "https://nyaa.si/?page=rss"},
		{"sub please", "", "https://nyaa.si/?page=rss&u=sub+please"},
		{"", "  Frieren   1080p ", "https://nyaa.si/?page=rss&q=Frieren+1080p"},
		{"Erai-raws", "One Piece", "https://nyaa.si/?page=rss&u=Erai-raws&q=One+Piece"},
	}

	for _, tc := range tests {
		if got := RSSURL("", tc.submitter, tc.query); got != tc.want {
			t.Fatalf("RSSURL(%q, %q): expected %s, got %s", tc.submitter, tc.query, tc.want, got)
		}
	}
}

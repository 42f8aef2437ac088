package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gabriel/release-panels/internal/connectors"
	"github.com/gabriel/release-panels/internal/models"
)

type fakeSource struct {
	key      string
	priority int
	mapping  *models.ExternalMapping
	err      error
	calls    atomic.Int32
}

func (f *fakeSource) Key() string                       { return f.key }
func (f *fakeSource) Name() string                      { return f.key }
func (f *fakeSource) Kind() string                      { return connectors.KindNative }
func (f *fakeSource) Priority() int                     { return f.priority }
func (f *fakeSource) HealthCheck(context.Context) error { return nil }
func (f *fakeSource) LookupMapping(context.Context, int64) (*models.ExternalMapping, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.mapping == nil {
		return nil, nil
	}
	copied := *f.mapping
	return &copied, nil
}

func registryOf(t *testing.T, sources ...*fakeSource) *connectors.Registry {
	t.Helper()
	registry := connectors.NewRegistry()
	for _, source := range sources {
		if err := registry.Register(source); err != nil {
			t.Fatalf("register %s: %v", source.key, err)
		}
	}
	return registry
}

func TestResolveFallsThroughToNextSource(t *testing.T) {
	first := &fakeSource{key: "first", priority: 1, err: errors.New("timeout")}
	second := &fakeSource{key: "second", priority: 2, mapping: &models.ExternalMapping{ExternalID: ""}}
	third := &fakeSource{key: "third", priority: 3, mapping: &models.ExternalMapping{ExternalID: "17617"}}
	fourth := &fakeSource{key: "fourth", priority: 4, mapping: &models.ExternalMapping{ExternalID: "999"}}

	r := New(registryOf(t, fourth, third, second, first), nil)
	mapping, err := r.Resolve(context.Background(), 154587)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if mapping.ExternalID != "17617" {
		t.Fatalf("expected 17617, got %s", mapping.ExternalID)
	}
	if mapping.Source != "third" || mapping.TitleID != 154587 {
		t.Fatalf("unexpected mapping %+v", mapping)
	}
	if first.calls.Load() != 1 || second.calls.Load() != 1 {
		t.Fatalf("expected each failing source to be tried exactly once")
	}
	if fourth.calls.Load() != 0 {
		t.Fatalf("expected lower priority source to be skipped after success")
	}
}

func TestResolveNotFound(t *testing.T) {
	r := New(registryOf(t,
		&fakeSource{key: "a", priority: 1, err: connectors.ErrNoMapping},
		&fakeSource{key: "b", priority: 2, err: errors.New("bad json")},
	), nil)

	_, err := r.Resolve(context.Background(), 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveStopsOnCancelledContext(t *testing.T) {
	source := &fakeSource{key: "a", priority: 1, mapping: &models.ExternalMapping{ExternalID: "1"}}
	r := New(registryOf(t, source), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Resolve(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if source.calls.Load() != 0 {
		t.Fatalf("expected no lookups after cancellation")
	}
}

func TestRegularEpisodes(t *testing.T) {
	mapping := &models.ExternalMapping{Episodes: []models.EpisodeRef{
		{EpisodeNumber: "0", Title: "Recap"},
		{EpisodeNumber: "10", Title: "Ten"},
		{EpisodeNumber: "S1", Title: "Special"},
		{EpisodeNumber: "2", Title: "Awakening"},
		{EpisodeNumber: "-1", Title: "Negative"},
		{EpisodeNumber: "1", Title: "Pilot"},
	}}

	episodes := RegularEpisodes(mapping)
	want := []string{"1", "2", "10"}
	if len(episodes) != len(want) {
		t.Fatalf("expected %d episodes, got %d", len(want), len(episodes))
	}
	for i, label := range want {
		if episodes[i].EpisodeNumber != label {
			t.Fatalf("position %d: expected %s, got %s", i, label, episodes[i].EpisodeNumber)
		}
	}
	if episodes[0].Title != "Pilot" {
		t.Fatalf("expected Pilot first, got %s", episodes[0].Title)
	}

	if got := RegularEpisodes(nil); len(got) != 0 {
		t.Fatalf("expected empty list for nil mapping")
	}
}

func TestFindEpisode(t *testing.T) {
	mapping := &models.ExternalMapping{Episodes: []models.EpisodeRef{
		{EpisodeNumber: "1", ExternalEpisodeID: "277518"},
		{EpisodeNumber: "2", ExternalEpisodeID: "277519"},
	}}

	episode, ok := FindEpisode(mapping, " 2 ")
	if !ok || episode.ExternalEpisodeID != "277519" {
		t.Fatalf("expected episode 2, got %+v (%v)", episode, ok)
	}
	if _, ok := FindEpisode(mapping, "3"); ok {
		t.Fatalf("expected episode 3 to be missing")
	}
}

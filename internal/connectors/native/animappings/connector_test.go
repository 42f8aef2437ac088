package animappings

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gabriel/release-panels/internal/connectors"
)

func TestLookupMapping(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mappings", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("anilist_id") {
		case "154587":
			_, _ = io.WriteString(w, `{
				"mappings": {"anilist_id": 154587, "anidb_id": 17617},
				"episodes": {
					"2": {"episode": "2", "anidbEid": 277519, "title": {"en": "It Didn't Have to Be Magic..."}},
					"S1": {"episode": "S1", "anidbEid": "280001", "title": {"en": "Special"}},
					"1": {"episode": "1", "anidbEid": 277518, "title": {"en": "The Journey's End"}},
					"10": {"episode": "10", "anidbEid": 277527, "title": {}}
				}
			}`)
		case "2":
			_, _ = io.WriteString(w, `{"mappings": {"anilist_id": 2}, "episodes": {}}`)
		case "4":
			_, _ = io.WriteString(w, `{"mappings": {"anilist_id": 4, "anidb_id": 18000}, "episodes": {}}`)
		case "5":
			_, _ = io.WriteString(w, `{"mappings": {"anilist_id": 5, "anidb_id": 18001}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	connector := NewConnectorWithOptions("anizip", "ani.zip", server.URL, 10, &http.Client{Timeout: 5 * time.Second})

	mapping, err := connector.LookupMapping(context.Background(), 154587)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if mapping.ExternalID != "17617" {
		t.Fatalf("expected external id 17617, got %s", mapping.ExternalID)
	}
	if mapping.Source != "anizip" || mapping.TitleID != 154587 {
		t.Fatalf("unexpected mapping header %+v", mapping)
	}
	if len(mapping.Episodes) != 4 {
		t.Fatalf("expected 4 episodes, got %d", len(mapping.Episodes))
	}
	order := []string{"1", "2", "10", "S1"}
	for i, want := range order {
		if mapping.Episodes[i].EpisodeNumber != want {
			t.Fatalf("episode %d: expected %s, got %s", i, want, mapping.Episodes[i].EpisodeNumber)
		}
	}
	if mapping.Episodes[0].ExternalEpisodeID != "277518" || mapping.Episodes[0].Title != "The Journey's End" {
		t.Fatalf("unexpected first episode %+v", mapping.Episodes[0])
	}
	if mapping.Episodes[3].ExternalEpisodeID != "280001" {
		t.Fatalf("expected string episode id to survive, got %s", mapping.Episodes[3].ExternalEpisodeID)
	}

	if _, err := connector.LookupMapping(context.Background(), 2); !errors.Is(err, connectors.ErrNoMapping) {
		t.Fatalf("expected ErrNoMapping for empty payload, got %v", err)
	}
	noEpisodes, err := connector.LookupMapping(context.Background(), 4)
	if err != nil {
		t.Fatalf("expected mapping with empty episodes, got %v", err)
	}
	if noEpisodes.ExternalID != "18000" || len(noEpisodes.Episodes) != 0 {
		t.Fatalf("unexpected mapping %+v", noEpisodes)
	}
	if _, err := connector.LookupMapping(context.Background(), 5); !errors.Is(err, connectors.ErrNoMapping) {
		t.Fatalf("expected ErrNoMapping without episodes key, got %v", err)
	}
	if _, err := connector.LookupMapping(context.Background(), 3); err == nil {
		t.Fatalf("expected error for 404")
	}
	if err := connector.HealthCheck(context.Background()); err == nil {
		t.Fatalf("expected unhealthy when probe title is unknown")
	}
}

func TestDefaultsAreOrdered(t *testing.T) {
	if NewAniZip().Priority() >= NewZenshin().Priority() {
		t.Fatalf("expected ani.zip to be consulted before zenshin")
	}
}

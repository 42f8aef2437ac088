package host

import (
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/net/html"
)

func TestParseTitleID(t *testing.T) {
	tests := map[string]int64{
		"https://anilist.co/anime/154587/Sousou-no-Frieren/": 154587,
		"https://anilist.co/anime/1":                         1,
	}
	for raw, want := range tests {
		got, ok := ParseTitleID(raw)
		if !ok || got != want {
			t.Fatalf("ParseTitleID(%q): expected %d, got %d (%v)", raw, want, got, ok)
		}
	}

	for _, raw := range []string{"https://anilist.co/manga/30013", "https://anilist.co/home", "", "https://anilist.co/anime/0"} {
		if _, ok := ParseTitleID(raw); ok {
			t.Fatalf("expected %q to be a non-title page", raw)
		}
	}
}

func TestNavigateReplaceAndNotify(t *testing.T) {
	page := NewPage()
	var calls atomic.Int32
	unsubscribe := page.OnMutation(func() { calls.Add(1) })

	if err := page.Navigate("https://anilist.co/anime/21", `<html><body><div class="media"><div class="reviews">old</div></div></body></html>`); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if id, ok := page.TitleID(); !ok || id != 21 {
		t.Fatalf("expected title 21, got %d", id)
	}

	replaced, err := page.Replace(".reviews", `<div class="threads">new</div>`)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if replaced != 1 {
		t.Fatalf("expected 1 replaced node, got %d", replaced)
	}

	out, err := page.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "reviews") || !strings.Contains(out, `<div class="threads">new</div>`) {
		t.Fatalf("unexpected document %s", out)
	}

	if replaced, _ := page.Replace(".missing", "<p></p>"); replaced != 0 {
		t.Fatalf("expected no replacement for missing selector")
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 notifications, got %d", calls.Load())
	}
	if page.Version() != 2 {
		t.Fatalf("expected version 2, got %d", page.Version())
	}

	page.Do(func(doc *html.Node) {
		doc.AppendChild(&html.Node{Type: html.CommentNode, Data: "silent"})
	})
	if calls.Load() != 2 || page.Version() != 2 {
		t.Fatalf("expected Do to stay silent")
	}

	unsubscribe()
	if err := page.Navigate("https://anilist.co/home", "<p>home</p>"); err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected no notification after unsubscribe")
	}
	if _, ok := page.TitleID(); ok {
		t.Fatalf("expected home page to have no title")
	}
}

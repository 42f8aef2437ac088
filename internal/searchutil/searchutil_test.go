package searchutil

import "testing"

func TestTokenize(t *testing.T) {
	tokens := Tokenize("  1080p  SubsPlease 1080P  ")
	if len(tokens) != 2 || tokens[0] != "1080p" || tokens[1] != "subsplease" {
		t.Fatalf("unexpected tokens %v", tokens)
	}
	if Tokenize("   ") != nil {
		t.Fatalf("expected nil tokens for blank input")
	}
}

func TestMatches(t *testing.T) {
	name := "[SubsPlease] Frieren - 01 (1080p) [ABCD1234].mkv"

	if !MatchesAll(name, Tokenize("frieren 1080p")) {
		t.Fatalf("expected all tokens to match")
	}
	if MatchesAll(name, Tokenize("frieren 720p")) {
		t.Fatalf("expected 720p to fail include match")
	}
	if !MatchesAll(name, nil) {
		t.Fatalf("expected empty token list to match everything")
	}
	if !MatchesAny(name, Tokenize("720p [subsplease]")) {
		t.Fatalf("expected bracketed token to match")
	}
	if MatchesAny(name, Tokenize("hevc 720p")) {
		t.Fatalf("expected no token to match")
	}
	if Normalize("  Foo   BAR ") != "foo bar" {
		t.Fatalf("unexpected normalize result %q", Normalize("  Foo   BAR "))
	}
}

package searchutil

import "strings"

// Normalize lowercases and collapses whitespace. Punctuation is kept: release names carry
// meaningful brackets and dashes.
func Normalize(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// Tokenize splits normalized filter text into distinct whitespace-separated tokens.
func Tokenize(value string) []string {
	parts := strings.Fields(strings.ToLower(value))
	if len(parts) == 0 {
		return nil
	}

	tokens := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		if _, exists := seen[part]; exists {
			continue
		}
		seen[part] = struct{}{}
		tokens = append(tokens, part)
	}
	return tokens
}

// MatchesAll reports whether every token is a substring of the lowercased candidate.
func MatchesAll(candidate string, tokens []string) bool {
	lower := strings.ToLower(candidate)
	for _, token := range tokens {
		if !strings.Contains(lower, token) {
			return false
		}
	}
	return true
}

// MatchesAny reports whether at least one token is a substring of the lowercased candidate.
func MatchesAny(candidate string, tokens []string) bool {
	lower := strings.ToLower(candidate)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

package sizeutil

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseCount reads the leading integer of a counter label ("312", "1,024", "12 peers").
// Anything without a leading number counts as 0.
func ParseCount(raw string) int64 {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	end := 0
	for end < len(trimmed) {
		r := rune(trimmed[end])
		if unicode.IsDigit(r) || (end == 0 && (r == '-' || r == '+')) {
			end++
			continue
		}
		break
	}
	value, err := strconv.ParseInt(trimmed[:end], 10, 64)
	if err != nil {
		return 0
	}
	return value
}

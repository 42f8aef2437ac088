package sizeutil

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoSize = 4096

var sizePattern = regexp.MustCompile(`(?i)^([\d.]+)\s*(bytes|[KMGT]iB|[KMGT]B|B)?$`)

var binaryUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// Parser turns index size labels such as "1.2 GiB" into byte counts.
// Results, including misses, are memoized.
type Parser struct {
	memo *lru.Cache[string, uint64]
}

func NewParser(memoSize int) *Parser {
	if memoSize <= 0 {
		memoSize = defaultMemoSize
	}
	memo, err := lru.New[string, uint64](memoSize)
	if err != nil {
		panic(fmt.Sprintf("sizeutil: create memo: %v", err))
	}
	return &Parser{memo: memo}
}

var defaultParser = NewParser(defaultMemoSize)

// Parse returns 0 for empty or unrecognised input.
func Parse(raw string) uint64 {
	return defaultParser.Parse(raw)
}

func (p *Parser) Parse(raw string) uint64 {
	if raw == "" {
		return 0
	}
	if cached, ok := p.memo.Get(raw); ok {
		return cached
	}

	value := parseUncached(raw)
	p.memo.Add(raw, value)
	return value
}

func (p *Parser) Len() int {
	return p.memo.Len()
}

func parseUncached(raw string) uint64 {
	match := sizePattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return 0
	}

	unit := match[2]
	if strings.EqualFold(unit, "bytes") || unit == "" {
		unit = "B"
	}

	parsed, err := humanize.ParseBytes(match[1] + " " + unit)
	if err != nil {
		return 0
	}
	return parsed
}

// FormatBytes renders a byte count in the largest binary unit (B..TiB) under which
// the value is at least 1, with one decimal place.
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	value := float64(bytes)
	unit := 0
	for unit < len(binaryUnits)-1 && value >= 1024 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, binaryUnits[unit])
}

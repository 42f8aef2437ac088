package mergestore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel/release-panels/internal/models"
	"github.com/gabriel/release-panels/internal/searchutil"
	"github.com/gabriel/release-panels/internal/sizeutil"
)

type Criteria string

const (
	BySeeders   Criteria = "seeders"
	ByDate      Criteria = "date"
	BySize      Criteria = "size"
	ByCompleted Criteria = "completed"
)

func ParseCriteria(raw string) (Criteria, error) {
	switch c := Criteria(strings.ToLower(strings.TrimSpace(raw))); c {
	case BySeeders, ByDate, BySize, ByCompleted:
		return c, nil
	default:
		return "", fmt.Errorf("unknown sort criteria %q", raw)
	}
}

type FilterMode string

const (
	Include FilterMode = "include"
	Exclude FilterMode = "exclude"
)

func ParseFilterMode(raw string) (FilterMode, error) {
	switch m := FilterMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case Include, Exclude:
		return m, nil
	case "":
		return Include, nil
	default:
		return "", fmt.Errorf("unknown filter mode %q", raw)
	}
}

var dateLayouts = []string{
	"2006-01-02 15:04 MST",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02",
}

// Item is one stored result with its derived sort keys.
type Item struct {
	Index      int                `json:"index"`
	Visible    bool               `json:"visible"`
	SizeBytes  uint64             `json:"sizeBytes"`
	DateMillis int64              `json:"dateMillis"`
	Seeders    int64              `json:"seeders"`
	Completed  int64              `json:"completed"`
	Result     models.IndexResult `json:"result"`
}

// Store keeps results of one search run in insertion order plus a rendered order under
// the active comparator. Indexes are stable for the lifetime of a run.
type Store struct {
	mu         sync.RWMutex
	items      []Item
	order      []int
	criteria   Criteria
	filterText string
	filterMode FilterMode
	tokens     []string
	sizes      *sizeutil.Parser
}

func New() *Store {
	return &Store{
		items:      []Item{},
		order:      []int{},
		criteria:   BySeeders,
		filterMode: Include,
		sizes:      sizeutil.NewParser(0),
	}
}

// Reset drops all results. Sort criteria and filter survive a reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = []Item{}
	s.order = []int{}
}

// Insert adds a result and returns its position in the rendered order, or -1 when the
// result has no active seeders.
func (s *Store) Insert(result models.IndexResult) int {
	item := Item{
		SizeBytes:  s.sizes.Parse(result.FileSize),
		DateMillis: parseDateMillis(result.Date),
		Seeders:    sizeutil.ParseCount(result.Seeders),
		Completed:  sizeutil.ParseCount(result.Completed),
		Result:     result,
	}
	if item.Seeders <= 0 {
		return -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item.Index = len(s.items)
	item.Visible = s.matches(item.Result.ReleaseName)
	s.items = append(s.items, item)

	low, high := 0, len(s.order)
	for low < high {
		mid := (low + high) / 2
		if s.compare(item, s.items[s.order[mid]]) < 0 {
			high = mid
		} else {
			low = mid + 1
		}
	}

	s.order = append(s.order, 0)
	copy(s.order[low+1:], s.order[low:])
	s.order[low] = item.Index
	return low
}

// ChangeSort reorders every stored result under the new criteria. Ties keep arrival order.
func (s *Store) ChangeSort(criteria Criteria) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.criteria = criteria
	order := make([]int, len(s.items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return s.compare(s.items[order[i]], s.items[order[j]]) < 0
	})
	s.order = order
}

// SetFilter recomputes visibility without touching order. Blank text shows everything.
func (s *Store) SetFilter(text string, mode FilterMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == "" {
		mode = Include
	}
	s.filterText = text
	s.filterMode = mode
	s.tokens = searchutil.Tokenize(text)
	for i := range s.items {
		s.items[i].Visible = s.matches(s.items[i].Result.ReleaseName)
	}
}

// View returns the items in rendered order.
func (s *Store) View() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := make([]Item, 0, len(s.order))
	for _, index := range s.order {
		view = append(view, s.items[index])
	}
	return view
}

func (s *Store) Get(index int) (models.IndexResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.items) {
		return models.IndexResult{}, false
	}
	return s.items[index].Result, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Criteria() Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

func (s *Store) Filter() (string, FilterMode) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterText, s.filterMode
}

func (s *Store) matches(name string) bool {
	if len(s.tokens) == 0 {
		return true
	}
	if s.filterMode == Exclude {
		return !searchutil.MatchesAny(name, s.tokens)
	}
	return searchutil.MatchesAll(name, s.tokens)
}

// compare is negative when a ranks before b. Every criteria sorts descending.
func (s *Store) compare(a, b Item) int {
	switch s.criteria {
	case ByDate:
		return compareDesc(a.DateMillis, b.DateMillis)
	case BySize:
		return compareDesc(a.SizeBytes, b.SizeBytes)
	case ByCompleted:
		return compareDesc(a.Completed, b.Completed)
	default:
		return compareDesc(a.Seeders, b.Seeders)
	}
}

func compareDesc[T int64 | uint64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func parseDateMillis(raw string) int64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed.UnixMilli()
		}
	}
	return 0
}

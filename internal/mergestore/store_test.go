package mergestore

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/gabriel/release-panels/internal/models"
)

func release(name, seeders, size, date, completed string) models.IndexResult {
	return models.IndexResult{
		ReleaseName: name,
		Seeders:     seeders,
		FileSize:    size,
		Date:        date,
		Completed:   completed,
	}
}

func names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Result.ReleaseName)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestInsertRejectsZeroSeeders(t *testing.T) {
	store := New()
	if pos := store.Insert(release("dead", "0", "1 GiB", "", "")); pos != -1 {
		t.Fatalf("expected -1 for zero seeders, got %d", pos)
	}
	if pos := store.Insert(release("blank", "", "1 GiB", "", "")); pos != -1 {
		t.Fatalf("expected -1 for missing seeders, got %d", pos)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d", store.Len())
	}
	for _, item := range store.View() {
		if item.Seeders <= 0 {
			t.Fatalf("zero-seeder item admitted: %+v", item)
		}
	}
}

func TestInsertTiesKeepArrivalOrder(t *testing.T) {
	store := New()
	store.Insert(release("A", "10", "", "", ""))
	store.Insert(release("B", "5", "", "", ""))
	pos := store.Insert(release("C", "10", "", "", ""))

	if pos != 1 {
		t.Fatalf("expected C at position 1, got %d", pos)
	}
	if got := names(store.View()); !equalStrings(got, []string{"A", "C", "B"}) {
		t.Fatalf("expected A,C,B got %v", got)
	}
}

func TestIncrementalInsertMatchesBatchSort(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, criteria := range []Criteria{BySeeders, ByDate, BySize, ByCompleted} {
		store := New()
		store.ChangeSort(criteria)

		for i := 0; i < 60; i++ {
			store.Insert(release(
				fmt.Sprintf("r%02d", i),
				fmt.Sprint(rng.Intn(6)+1),
				fmt.Sprintf("%d MiB", rng.Intn(4)*256),
				fmt.Sprintf("2024-01-%02d 12:00 UTC", rng.Intn(5)+1),
				fmt.Sprint(rng.Intn(3)),
			))

			view := store.View()
			batch := append([]Item(nil), view...)
			sort.SliceStable(batch, func(a, b int) bool { return batch[a].Index < batch[b].Index })
			sort.SliceStable(batch, func(a, b int) bool { return store.compare(batch[a], batch[b]) < 0 })

			if !equalStrings(names(view), names(batch)) {
				t.Fatalf("%s: incremental order diverged after %d inserts", criteria, i+1)
			}
		}
	}
}

func TestChangeSortIsNonDestructive(t *testing.T) {
	store := New()
	store.Insert(release("small-popular", "50", "100 MiB", "2024-01-01 00:00 UTC", "900"))
	store.Insert(release("big-rare", "2", "4 GiB", "2024-03-01 00:00 UTC", "10"))
	store.Insert(release("mid", "20", "1 GiB", "2024-02-01 00:00 UTC", "300"))

	store.ChangeSort(BySize)
	if got := names(store.View()); !equalStrings(got, []string{"big-rare", "mid", "small-popular"}) {
		t.Fatalf("size order: got %v", got)
	}

	store.ChangeSort(ByDate)
	if got := names(store.View()); !equalStrings(got, []string{"big-rare", "mid", "small-popular"}) {
		t.Fatalf("date order: got %v", got)
	}

	store.ChangeSort(ByCompleted)
	if got := names(store.View()); !equalStrings(got, []string{"small-popular", "mid", "big-rare"}) {
		t.Fatalf("completed order: got %v", got)
	}

	store.ChangeSort(BySeeders)
	if store.Len() != 3 || len(store.View()) != 3 {
		t.Fatalf("expected 3 items after resorting, got %d", len(store.View()))
	}
	if got, ok := store.Get(1); !ok || got.ReleaseName != "big-rare" {
		t.Fatalf("expected stable index 1 to stay big-rare, got %+v", got)
	}
}

func TestSetFilterPreservesOrder(t *testing.T) {
	store := New()
	store.Insert(release("[SubsPlease] Frieren - 01 (1080p).mkv", "30", "", "", ""))
	store.Insert(release("[Erai-raws] Frieren - 01 [720p].mkv", "20", "", "", ""))
	store.Insert(release("[SubsPlease] Frieren - 01 (720p).mkv", "10", "", "", ""))
	before := names(store.View())

	store.SetFilter("subsplease 1080P", Include)
	visible := 0
	for _, item := range store.View() {
		if item.Visible {
			visible++
			if item.Index != 0 {
				t.Fatalf("unexpected visible item %s", item.Result.ReleaseName)
			}
		}
	}
	if visible != 1 {
		t.Fatalf("expected 1 visible item, got %d", visible)
	}

	store.SetFilter("erai 1080p", Exclude)
	for _, item := range store.View() {
		if item.Index != 2 && item.Visible {
			t.Fatalf("expected %s hidden", item.Result.ReleaseName)
		}
		if item.Index == 2 && !item.Visible {
			t.Fatalf("expected %s visible", item.Result.ReleaseName)
		}
	}

	store.SetFilter("", Include)
	for _, item := range store.View() {
		if !item.Visible {
			t.Fatalf("expected everything visible after clearing filter")
		}
	}
	if !equalStrings(before, names(store.View())) {
		t.Fatalf("filtering changed order: %v -> %v", before, names(store.View()))
	}
}

func TestInsertAppliesActiveFilter(t *testing.T) {
	store := New()
	store.SetFilter("hevc", Exclude)
	store.Insert(release("Show 01 HEVC", "4", "", "", ""))
	store.Insert(release("Show 01 AVC", "3", "", "", ""))

	view := store.View()
	if view[0].Visible || !view[1].Visible {
		t.Fatalf("expected active exclude filter to apply to new inserts, got %+v", view)
	}
}

func TestResetKeepsSortAndFilter(t *testing.T) {
	store := New()
	store.ChangeSort(BySize)
	store.SetFilter("x", Exclude)
	store.Insert(release("a", "1", "", "", ""))
	store.Reset()

	if store.Len() != 0 || len(store.View()) != 0 {
		t.Fatalf("expected empty store after reset")
	}
	if store.Criteria() != BySize {
		t.Fatalf("expected size criteria to survive reset")
	}
	if text, mode := store.Filter(); text != "x" || mode != Exclude {
		t.Fatalf("expected filter to survive reset, got %q %q", text, mode)
	}
	if _, ok := store.Get(0); ok {
		t.Fatalf("expected index 0 to be gone after reset")
	}
}

func TestDerivedKeysDefaultToZero(t *testing.T) {
	store := New()
	store.Insert(release("odd", "3", "lots", "yesterday", "many"))

	item := store.View()[0]
	if item.SizeBytes != 0 || item.DateMillis != 0 || item.Completed != 0 {
		t.Fatalf("expected malformed keys to default to 0, got %+v", item)
	}

	if got := parseDateMillis("2023-09-29 12:20 UTC"); got != 1695990000000 {
		t.Fatalf("expected 1695990000000, got %d", got)
	}
}

func TestParseCriteriaAndMode(t *testing.T) {
	if c, err := ParseCriteria(" Size "); err != nil || c != BySize {
		t.Fatalf("expected size criteria, got %q %v", c, err)
	}
	if _, err := ParseCriteria("name"); err == nil {
		t.Fatalf("expected error for unknown criteria")
	}
	if m, err := ParseFilterMode(""); err != nil || m != Include {
		t.Fatalf("expected include default, got %q %v", m, err)
	}
	if _, err := ParseFilterMode("maybe"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

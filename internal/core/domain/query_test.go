package domain

import (
	"testing"
	"time"
)

func doc(id string, fields map[string]any) *Document {
	return &Document{ID: id, Fields: fields, CreatedAt: time.Now(), UpdatedAt: time.Now()}
}

func TestMatchesFilters(t *testing.T) {
	d := doc("d1", map[string]any{
		"name":   "alice",
		"score":  float64(42),
		"active": true,
	})

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters", nil, true},
		{"string eq", []Filter{{Field: "name", Op: FilterEq, Value: "alice"}}, true},
		{"string eq miss", []Filter{{Field: "name", Op: FilterEq, Value: "bob"}}, false},
		{"numeric eq across kinds", []Filter{{Field: "score", Op: FilterEq, Value: 42}}, true},
		{"lt", []Filter{{Field: "score", Op: FilterLt, Value: 50}}, true},
		{"lte boundary", []Filter{{Field: "score", Op: FilterLte, Value: 42}}, true},
		{"gt miss", []Filter{{Field: "score", Op: FilterGt, Value: 42}}, false},
		{"gte boundary", []Filter{{Field: "score", Op: FilterGte, Value: 42}}, true},
		{"bool eq", []Filter{{Field: "active", Op: FilterEq, Value: true}}, true},
		{"in hit", []Filter{{Field: "name", Op: FilterIn, Value: []string{"bob", "alice"}}}, true},
		{"in miss", []Filter{{Field: "name", Op: FilterIn, Value: []string{"bob", "carol"}}}, false},
		{"in non-slice", []Filter{{Field: "name", Op: FilterIn, Value: "alice"}}, false},
		{"absent field", []Filter{{Field: "missing", Op: FilterEq, Value: "x"}}, false},
		{"conjunction", []Filter{
			{Field: "name", Op: FilterEq, Value: "alice"},
			{Field: "score", Op: FilterGt, Value: 40},
		}, true},
		{"conjunction one miss", []Filter{
			{Field: "name", Op: FilterEq, Value: "alice"},
			{Field: "score", Op: FilterGt, Value: 50},
		}, false},
		{"incomparable types", []Filter{{Field: "name", Op: FilterGt, Value: 5}}, false},
		{"id field", []Filter{{Field: "id", Op: FilterEq, Value: "d1"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesFilters(d, tt.filters); got != tt.want {
				t.Errorf("MatchesFilters = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompareValues_Times(t *testing.T) {
	earlier := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(time.Hour)

	cmp, ok := CompareValues(earlier, later)
	if !ok || cmp >= 0 {
		t.Errorf("expected earlier < later, got %d (%v)", cmp, ok)
	}

	// Stored timestamps round-trip through JSON as RFC3339 strings.
	cmp, ok = CompareValues(later, earlier.Format(time.RFC3339Nano))
	if !ok || cmp <= 0 {
		t.Errorf("expected time > string form of earlier, got %d (%v)", cmp, ok)
	}
}

func TestSortDocuments(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*Document{
		{ID: "c", CreatedAt: base.Add(2 * time.Second), Fields: map[string]any{"rank": float64(1)}},
		{ID: "a", CreatedAt: base, Fields: map[string]any{"rank": float64(3)}},
		{ID: "b", CreatedAt: base.Add(time.Second), Fields: map[string]any{"rank": float64(2)}},
	}

	SortDocuments(docs, nil)
	if docs[0].ID != "a" || docs[1].ID != "b" || docs[2].ID != "c" {
		t.Errorf("default order must be created_at asc, got %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}

	SortDocuments(docs, &OrderBy{Field: "rank", Desc: true})
	if docs[0].ID != "a" || docs[2].ID != "c" {
		t.Errorf("rank desc order wrong, got %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}

func TestSortDocuments_TieBreak(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	docs := []*Document{
		{ID: "z", CreatedAt: base},
		{ID: "a", CreatedAt: base},
		{ID: "m", CreatedAt: base},
	}
	SortDocuments(docs, nil)
	if docs[0].ID != "a" || docs[1].ID != "m" || docs[2].ID != "z" {
		t.Errorf("equal sort keys must fall back to ID order, got %s %s %s", docs[0].ID, docs[1].ID, docs[2].ID)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := EncodeCursor("2025-01-01T00:00:00Z", "doc-42")
	if cursor == "" {
		t.Fatal("expected non-empty cursor")
	}

	value, id, err := DecodeCursor(cursor)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if id != "doc-42" {
		t.Errorf("expected id doc-42, got %q", id)
	}
	if value != "2025-01-01T00:00:00Z" {
		t.Errorf("expected value preserved, got %v", value)
	}

	if _, _, err := DecodeCursor("not!!valid"); err == nil {
		t.Error("expected error for malformed cursor")
	}
	if _, _, err := DecodeCursor("bm90LWpzb24"); err == nil {
		t.Error("expected error for non-JSON cursor payload")
	}
}

func TestCursorPosition(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	before := &Document{ID: "a", CreatedAt: base}
	at := &Document{ID: "b", CreatedAt: base.Add(time.Second)}
	after := &Document{ID: "c", CreatedAt: base.Add(2 * time.Second)}

	cursorValue := at.CreatedAt
	if CursorPosition(before, cursorValue, "b", nil) {
		t.Error("document before the cursor must not be included")
	}
	if CursorPosition(at, cursorValue, "b", nil) {
		t.Error("the cursor document itself must not be included")
	}
	if !CursorPosition(after, cursorValue, "b", nil) {
		t.Error("document after the cursor must be included")
	}

	// Equal sort values resolve on ID.
	twin := &Document{ID: "z", CreatedAt: at.CreatedAt}
	if !CursorPosition(twin, cursorValue, "b", nil) {
		t.Error("equal value with larger ID must be included")
	}
}

func TestDocumentClone(t *testing.T) {
	orig := doc("d1", map[string]any{
		"name":   "alice",
		"nested": map[string]any{"k": "v"},
		"list":   []any{"x"},
	})

	clone := orig.Clone()
	clone.Fields["name"] = "bob"
	clone.Fields["nested"].(map[string]any)["k"] = "changed"
	clone.Fields["list"].([]any)[0] = "changed"

	if orig.Fields["name"] != "alice" {
		t.Error("clone must not share top-level fields")
	}
	if orig.Fields["nested"].(map[string]any)["k"] != "v" {
		t.Error("clone must not share nested maps")
	}
	if orig.Fields["list"].([]any)[0] != "x" {
		t.Error("clone must not share nested slices")
	}

	var nilDoc *Document
	if nilDoc.Clone() != nil {
		t.Error("nil document clones to nil")
	}
}

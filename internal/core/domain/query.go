package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// FieldValue resolves a query field against a document. The store-managed
// fields are addressable alongside user data.
func FieldValue(doc *Document, field string) any {
	switch field {
	case "id":
		return doc.ID
	case "created_at":
		return doc.CreatedAt
	case "updated_at":
		return doc.UpdatedAt
	default:
		return doc.Fields[field]
	}
}

// MatchesFilters reports whether the document satisfies every filter
// (filters are conjunctive). A filter on an absent field never matches.
func MatchesFilters(doc *Document, filters []Filter) bool {
	for _, f := range filters {
		if !matchesFilter(doc, f) {
			return false
		}
	}
	return true
}

func matchesFilter(doc *Document, f Filter) bool {
	v := FieldValue(doc, f.Field)
	if v == nil {
		return false
	}

	if f.Op == FilterIn {
		rv := reflect.ValueOf(f.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if cmp, ok := CompareValues(v, rv.Index(i).Interface()); ok && cmp == 0 {
				return true
			}
		}
		return false
	}

	cmp, ok := CompareValues(v, f.Value)
	if !ok {
		return false
	}
	switch f.Op {
	case FilterEq:
		return cmp == 0
	case FilterLt:
		return cmp < 0
	case FilterLte:
		return cmp <= 0
	case FilterGt:
		return cmp > 0
	case FilterGte:
		return cmp >= 0
	default:
		return false
	}
}

// CompareValues orders two field values. Numbers compare numerically across
// Go integer/float kinds (JSON decoding yields float64), strings and times
// compare naturally. ok is false for incomparable type pairs.
func CompareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	switch at := a.(type) {
	case string:
		bt, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(at, bt), true
	case bool:
		bt, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if at == bt {
			return 0, true
		}
		if !at {
			return -1, true
		}
		return 1, true
	case time.Time:
		bt, ok := toTime(b)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	default:
		return time.Time{}, false
	}
}

// SortDocuments orders docs on the given field, ties broken by ID so the
// order is total and stable across runs. A nil orderBy sorts by creation
// time, which is the default scan order for pagination.
func SortDocuments(docs []*Document, orderBy *OrderBy) {
	field := "created_at"
	desc := false
	if orderBy != nil {
		field = orderBy.Field
		desc = orderBy.Desc
	}

	sort.SliceStable(docs, func(i, j int) bool {
		cmp, ok := CompareValues(FieldValue(docs[i], field), FieldValue(docs[j], field))
		if !ok || cmp == 0 {
			cmp = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

// cursorPayload is the decoded form of an opaque pagination cursor.
type cursorPayload struct {
	Value any    `json:"v"`
	ID    string `json:"id"`
}

// EncodeCursor packs the last-seen sort value and document ID into an opaque
// cursor string. Only the backend that issued a cursor should decode it.
func EncodeCursor(value any, id string) string {
	data, err := json.Marshal(cursorPayload{Value: value, ID: id})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor unpacks a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (value any, id string, err error) {
	data, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, "", fmt.Errorf("malformed cursor: %w", err)
	}
	var p cursorPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, "", fmt.Errorf("malformed cursor: %w", err)
	}
	return p.Value, p.ID, nil
}

// CursorPosition reports whether doc sorts strictly after the cursor position
// under the given order. Used by backends to resume a scan.
func CursorPosition(doc *Document, cursorValue any, cursorID string, orderBy *OrderBy) bool {
	field := "created_at"
	desc := false
	if orderBy != nil {
		field = orderBy.Field
		desc = orderBy.Desc
	}

	cmp, ok := CompareValues(FieldValue(doc, field), cursorValue)
	if !ok || cmp == 0 {
		return strings.Compare(doc.ID, cursorID) > 0
	}
	if desc {
		return cmp < 0
	}
	return cmp > 0
}

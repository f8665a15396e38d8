package domain

import "time"

// Document is an opaque record stored in a collection. Field values are
// whatever the backend round-trips through JSON (strings, float64 numbers,
// bools, nested maps/slices). ID, CreatedAt and UpdatedAt are store-managed.
type Document struct {
	ID        string         `json:"id"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the document. Backends hand out clones so
// callers can mutate results without corrupting stored state.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	return &Document{
		ID:        d.ID,
		Fields:    cloneFields(d.Fields),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

// MergeFields overlays partial onto the document's fields, replacing
// top-level keys. Used by Update and SaveOrUpdate merge semantics.
func (d *Document) MergeFields(partial map[string]any) {
	if d.Fields == nil {
		d.Fields = make(map[string]any, len(partial))
	}
	for k, v := range partial {
		d.Fields[k] = cloneValue(v)
	}
}

// FilterOp is a query predicate operator.
type FilterOp string

const (
	FilterEq  FilterOp = "=="
	FilterLt  FilterOp = "<"
	FilterLte FilterOp = "<="
	FilterGt  FilterOp = ">"
	FilterGte FilterOp = ">="
	FilterIn  FilterOp = "in"
)

// Filter is a single conjunctive predicate on a document field.
// For FilterIn, Value must be a slice.
type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// OrderBy names the single field results are sorted on.
type OrderBy struct {
	Field string
	Desc  bool
}

// QueryOptions describes an offset-paginated query. Offset is implemented by
// fetching and slicing, which is inefficient for large offsets - callers that
// page deep should use cursor pagination instead.
type QueryOptions struct {
	Filters []Filter
	OrderBy *OrderBy
	Limit   int
	Offset  int
}

// QueryResult is the offset-paginated result set.
type QueryResult struct {
	Data    []*Document `json:"data"`
	Total   int         `json:"total"`
	HasMore bool        `json:"has_more"`
}

// Page is one page of a cursor-paginated scan. Cursor is opaque to callers
// and only meaningful to the backend that issued it; empty means last page.
type Page struct {
	Data    []*Document `json:"data"`
	HasMore bool        `json:"has_more"`
	Cursor  string      `json:"cursor,omitempty"`
}

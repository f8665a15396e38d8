package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Database = (*Database)(nil)
	_ driven.Store    = (*Store)(nil)
)

// txRetries is how many times a serialization conflict is retried.
const txRetries = 3

// fieldNameRe restricts filter/order field names to identifier characters;
// field names are interpolated into jsonb accessor expressions.
var fieldNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Database hands out collection stores over one Postgres pool.
type Database struct {
	db *DB
}

// NewDatabase wraps a connected pool.
func NewDatabase(db *DB) *Database {
	return &Database{db: db}
}

func (d *Database) Collection(name string) driven.Store {
	return &Store{db: d.db, collection: name}
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.db.Close()
}

// Store implements driven.Store over the documents table.
type Store struct {
	db         *DB
	collection string
}

// querier is satisfied by both *sql.DB (via DB) and *sql.Tx so the document
// SQL is shared between plain operations and transactions.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) Save(ctx context.Context, fields map[string]any) (*domain.Document, error) {
	doc, err := insertDoc(ctx, s.db, s.collection, uuid.NewString(), fields)
	return doc, domain.NewStoreError("save", err)
}

// SaveBatch creates documents in input order. Each insert is atomic on its
// own; the batch is not cross-item atomic, so a mid-batch failure leaves
// earlier documents in place.
func (s *Store) SaveBatch(ctx context.Context, items []map[string]any) ([]*domain.Document, error) {
	out := make([]*domain.Document, 0, len(items))
	for _, fields := range items {
		doc, err := insertDoc(ctx, s.db, s.collection, uuid.NewString(), fields)
		if err != nil {
			return nil, domain.NewStoreError("saveBatch", err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := getDoc(ctx, s.db, s.collection, id)
	return doc, domain.NewStoreError("getById", err)
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error) {
	found := make(map[string]*domain.Document, len(ids))

	for start := 0; start < len(ids); start += driven.BatchChunkSize {
		end := start + driven.BatchChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT id, fields, created_at, updated_at
			FROM documents
			WHERE collection = $1 AND id = ANY($2)
		`, s.collection, pq.Array(ids[start:end]))
		if err != nil {
			return nil, domain.NewStoreError("getByIds", err)
		}
		if err := scanDocsInto(rows, found); err != nil {
			return nil, domain.NewStoreError("getByIds", err)
		}
	}

	// Preserve input order and length; missing ids stay nil.
	out := make([]*domain.Document, len(ids))
	for i, id := range ids {
		out[i] = found[id]
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, partial map[string]any) (*domain.Document, error) {
	doc, err := updateDoc(ctx, s.db, s.collection, id, partial)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return doc, domain.NewStoreError("update", err)
}

func (s *Store) SaveOrUpdate(ctx context.Context, id string, fields map[string]any) (*domain.Document, error) {
	doc, err := upsertDoc(ctx, s.db, s.collection, id, fields)
	return doc, domain.NewStoreError("saveOrUpdate", err)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		s.collection, id)
	return domain.NewStoreError("delete", err)
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = ANY($2)`,
		s.collection, pq.Array(ids))
	return domain.NewStoreError("deleteBatch", err)
}

func (s *Store) Query(ctx context.Context, opts domain.QueryOptions) (*domain.QueryResult, error) {
	where, args, err := s.whereClause(opts.Filters)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	var total int
	countSQL := `SELECT count(*) FROM documents WHERE ` + where
	if err := s.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	orderExpr, err := orderExpression(opts.OrderBy)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	querySQL := `SELECT id, fields, created_at, updated_at FROM documents WHERE ` + where +
		` ORDER BY ` + orderExpr
	if opts.Limit > 0 {
		querySQL += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}
	if opts.Offset > 0 {
		querySQL += fmt.Sprintf(` OFFSET %d`, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}
	docs, err := scanDocs(rows)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	hasMore := false
	if opts.Limit > 0 {
		offset := opts.Offset
		if offset < 0 {
			offset = 0
		}
		hasMore = offset+len(docs) < total
	}

	return &domain.QueryResult{Data: docs, Total: total, HasMore: hasMore}, nil
}

func (s *Store) GetPaginated(ctx context.Context, limit int, cursor string, orderBy *domain.OrderBy) (*domain.Page, error) {
	if limit <= 0 {
		limit = 20
	}

	field := "created_at"
	desc := false
	if orderBy != nil {
		field = orderBy.Field
		desc = orderBy.Desc
	}

	sortExpr, err := sortColumn(field)
	if err != nil {
		return nil, domain.NewStoreError("getPaginated", err)
	}
	dir, cmp := "ASC", ">"
	if desc {
		dir, cmp = "DESC", "<"
	}

	args := []any{s.collection}
	where := `collection = $1`
	if cursor != "" {
		value, id, err := domain.DecodeCursor(cursor)
		if err != nil {
			return nil, domain.NewStoreError("getPaginated", err)
		}
		where += fmt.Sprintf(` AND (%s, id) %s ($2, $3)`, sortExpr, cmp)
		args = append(args, cursorArg(field, value), id)
	}

	// limit+1 lookahead detects hasMore without a count query.
	querySQL := fmt.Sprintf(`
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE %s
		ORDER BY %s %s, id %s
		LIMIT %d
	`, where, sortExpr, dir, dir, limit+1)

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, domain.NewStoreError("getPaginated", err)
	}
	docs, err := scanDocs(rows)
	if err != nil {
		return nil, domain.NewStoreError("getPaginated", err)
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	page := &domain.Page{Data: docs, HasMore: hasMore}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		page.Cursor = domain.EncodeCursor(domain.FieldValue(last, field), last.ID)
	}
	return page, nil
}

func (s *Store) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	where, args, err := s.whereClause(filters)
	if err != nil {
		return 0, domain.NewStoreError("count", err)
	}
	var total int
	err = s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents WHERE `+where, args...).Scan(&total)
	return total, domain.NewStoreError("count", err)
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE collection = $1 AND id = $2`,
		s.collection, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, domain.NewStoreError("exists", err)
}

// RunTransaction executes fn serializably, retrying serialization conflicts
// and deadlocks up to txRetries times.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx driven.Tx) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}

	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = s.db.Transaction(ctx, opts, func(tx *sql.Tx) error {
			return fn(&pgTx{ctx: ctx, tx: tx, collection: s.collection})
		})
		if err == nil || !retryableTxError(err) {
			break
		}
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.NewStoreError("runTransaction", err)
	}
	return err
}

func retryableTxError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func (s *Store) Subcollection(parentID, name string) driven.Store {
	return &Store{db: s.db, collection: s.collection + "/" + parentID + "/" + name}
}

// pgTx implements driven.Tx over a sql.Tx.
type pgTx struct {
	ctx        context.Context
	tx         *sql.Tx
	collection string
}

func (t *pgTx) Get(id string) (*domain.Document, error) {
	return getDoc(t.ctx, t.tx, t.collection, id)
}

func (t *pgTx) Create(fields map[string]any) (*domain.Document, error) {
	return insertDoc(t.ctx, t.tx, t.collection, uuid.NewString(), fields)
}

func (t *pgTx) Set(id string, fields map[string]any) error {
	_, err := upsertDoc(t.ctx, t.tx, t.collection, id, fields)
	return err
}

func (t *pgTx) Update(id string, partial map[string]any) error {
	_, err := updateDoc(t.ctx, t.tx, t.collection, id, partial)
	return err
}

func (t *pgTx) Delete(id string) error {
	_, err := t.tx.ExecContext(t.ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		t.collection, id)
	return err
}

// Shared document SQL, used by plain operations and transactions.

func insertDoc(ctx context.Context, q querier, collection, id string, fields map[string]any) (*domain.Document, error) {
	fieldsJSON, err := json.Marshal(orEmpty(fields))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if _, err := q.ExecContext(ctx, `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, collection, id, fieldsJSON, now); err != nil {
		return nil, err
	}
	doc := &domain.Document{ID: id, CreatedAt: now, UpdatedAt: now}
	doc.MergeFields(fields)
	return doc, nil
}

func getDoc(ctx context.Context, q querier, collection, id string) (*domain.Document, error) {
	doc, err := scanDoc(q.QueryRowContext(ctx, `
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

func updateDoc(ctx context.Context, q querier, collection, id string, partial map[string]any) (*domain.Document, error) {
	partialJSON, err := json.Marshal(orEmpty(partial))
	if err != nil {
		return nil, err
	}
	doc, err := scanDoc(q.QueryRowContext(ctx, `
		UPDATE documents
		SET fields = fields || $3::jsonb,
		    updated_at = GREATEST(updated_at, $4)
		WHERE collection = $1 AND id = $2
		RETURNING id, fields, created_at, updated_at
	`, collection, id, partialJSON, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

func upsertDoc(ctx context.Context, q querier, collection, id string, fields map[string]any) (*domain.Document, error) {
	fieldsJSON, err := json.Marshal(orEmpty(fields))
	if err != nil {
		return nil, err
	}
	return scanDoc(q.QueryRowContext(ctx, `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (collection, id) DO UPDATE SET
			fields = documents.fields || EXCLUDED.fields,
			updated_at = GREATEST(documents.updated_at, EXCLUDED.updated_at)
		RETURNING id, fields, created_at, updated_at
	`, collection, id, fieldsJSON, time.Now().UTC()))
}

func orEmpty(fields map[string]any) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	return fields
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDoc(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var fieldsJSON []byte
	if err := row.Scan(&doc.ID, &fieldsJSON, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsJSON, &doc.Fields); err != nil {
		return nil, err
	}
	return &doc, nil
}

func scanDocs(rows *sql.Rows) ([]*domain.Document, error) {
	defer rows.Close()
	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocsInto(rows *sql.Rows, dst map[string]*domain.Document) error {
	defer rows.Close()
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return err
		}
		dst[doc.ID] = doc
	}
	return rows.Err()
}

// whereClause builds the conjunctive WHERE expression for filters. Equality
// and membership use JSONB containment so the GIN index applies; range
// predicates compare through jsonb text accessors, numerically when the
// filter value is numeric.
func (s *Store) whereClause(filters []domain.Filter) (string, []any, error) {
	conds := []string{"collection = $1"}
	args := []any{s.collection}

	for _, f := range filters {
		if !fieldNameRe.MatchString(f.Field) {
			return "", nil, fmt.Errorf("invalid filter field %q", f.Field)
		}

		switch f.Op {
		case domain.FilterEq:
			probe, err := json.Marshal(map[string]any{f.Field: f.Value})
			if err != nil {
				return "", nil, err
			}
			args = append(args, probe)
			conds = append(conds, fmt.Sprintf("fields @> $%d::jsonb", len(args)))

		case domain.FilterIn:
			rv := reflect.ValueOf(f.Value)
			if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
				return "", nil, fmt.Errorf("in filter on %q requires a slice value", f.Field)
			}
			var parts []string
			for i := 0; i < rv.Len(); i++ {
				probe, err := json.Marshal(map[string]any{f.Field: rv.Index(i).Interface()})
				if err != nil {
					return "", nil, err
				}
				args = append(args, probe)
				parts = append(parts, fmt.Sprintf("fields @> $%d::jsonb", len(args)))
			}
			if len(parts) == 0 {
				conds = append(conds, "FALSE")
			} else {
				conds = append(conds, "("+strings.Join(parts, " OR ")+")")
			}

		case domain.FilterLt, domain.FilterLte, domain.FilterGt, domain.FilterGte:
			args = append(args, rangeArg(f.Value))
			accessor := fmt.Sprintf("fields->>'%s'", f.Field)
			if isNumeric(f.Value) {
				accessor = "(" + accessor + ")::numeric"
			}
			conds = append(conds, fmt.Sprintf("%s %s $%d", accessor, f.Op, len(args)))

		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
	}

	return strings.Join(conds, " AND "), args, nil
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func rangeArg(v any) any {
	if isNumeric(v) {
		return v
	}
	return fmt.Sprintf("%v", v)
}

// cursorArg converts a decoded cursor value into a SQL argument matching the
// sort expression's type: timestamps for managed columns, text for jsonb
// accessors.
func cursorArg(field string, value any) any {
	switch field {
	case "created_at", "updated_at":
		if s, ok := value.(string); ok {
			if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
				return ts
			}
		}
		return value
	case "id":
		return value
	default:
		return fmt.Sprintf("%v", value)
	}
}

func orderExpression(orderBy *domain.OrderBy) (string, error) {
	if orderBy == nil {
		return "created_at ASC, id ASC", nil
	}
	expr, err := sortColumn(orderBy.Field)
	if err != nil {
		return "", err
	}
	dir := "ASC"
	if orderBy.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", expr, dir, dir), nil
}

// sortColumn maps a logical field to a sortable SQL expression. Store-managed
// fields hit real columns; user fields sort on their jsonb text value.
func sortColumn(field string) (string, error) {
	switch field {
	case "created_at", "updated_at", "id":
		return field, nil
	}
	if !fieldNameRe.MatchString(field) {
		return "", fmt.Errorf("invalid order field %q", field)
	}
	return fmt.Sprintf("fields->>'%s'", field), nil
}

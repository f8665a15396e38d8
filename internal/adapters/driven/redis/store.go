// Package redis provides a Redis document store backend for deployments
// that run without PostgreSQL. Documents live one JSON blob per key with a
// per-collection id index; queries materialize the collection and filter
// client-side, which is fine for the moderate collection sizes this backend
// serves.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Database = (*Database)(nil)
	_ driven.Store    = (*Store)(nil)
)

const (
	// Key prefixes
	docPrefix   = "doc:"
	indexPrefix = "ids:"

	// txRetries is how many optimistic-lock rounds a transaction gets
	// before giving up under contention.
	txRetries = 5
)

// Database hands out collection stores over one Redis client.
type Database struct {
	client *redis.Client
}

// NewDatabase wraps a connected Redis client.
func NewDatabase(client *redis.Client) *Database {
	return &Database{client: client}
}

func (d *Database) Collection(name string) driven.Store {
	return &Store{client: d.client, collection: name}
}

func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func (d *Database) Close() error {
	return d.client.Close()
}

// Store implements driven.Store over Redis.
type Store struct {
	client     *redis.Client
	collection string
}

// storedDoc is the persisted JSON shape of one document.
type storedDoc struct {
	Fields    map[string]any `json:"f"`
	CreatedAt time.Time      `json:"c"`
	UpdatedAt time.Time      `json:"u"`
}

func (s *Store) docKey(id string) string {
	return docPrefix + s.collection + ":" + id
}

func (s *Store) indexKey() string {
	return indexPrefix + s.collection
}

func encodeDoc(doc *domain.Document) ([]byte, error) {
	return json.Marshal(storedDoc{Fields: doc.Fields, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt})
}

func decodeDoc(id string, data []byte) (*domain.Document, error) {
	var sd storedDoc
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	return &domain.Document{ID: id, Fields: sd.Fields, CreatedAt: sd.CreatedAt, UpdatedAt: sd.UpdatedAt}, nil
}

func (s *Store) Save(ctx context.Context, fields map[string]any) (*domain.Document, error) {
	now := time.Now().UTC()
	doc := &domain.Document{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	doc.MergeFields(fields)

	if err := s.writeDoc(ctx, doc); err != nil {
		return nil, domain.NewStoreError("save", err)
	}
	return doc, nil
}

// writeDoc stores the blob and index entry in one pipeline.
func (s *Store) writeDoc(ctx context.Context, doc *domain.Document) error {
	data, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.docKey(doc.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(doc.CreatedAt.UnixNano()), Member: doc.ID})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Store) SaveBatch(ctx context.Context, items []map[string]any) ([]*domain.Document, error) {
	out := make([]*domain.Document, 0, len(items))
	for _, fields := range items {
		doc, err := s.Save(ctx, fields)
		if err != nil {
			return nil, domain.NewStoreError("saveBatch", errors.Unwrap(err))
		}
		out = append(out, doc)
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	data, err := s.client.Get(ctx, s.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStoreError("getById", err)
	}
	doc, err := decodeDoc(id, data)
	return doc, domain.NewStoreError("getById", err)
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error) {
	out := make([]*domain.Document, len(ids))

	for start := 0; start < len(ids); start += driven.BatchChunkSize {
		end := start + driven.BatchChunkSize
		if end > len(ids) {
			end = len(ids)
		}

		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, s.docKey(id))
		}
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, domain.NewStoreError("getByIds", err)
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue // nil slot for missing id
			}
			doc, err := decodeDoc(ids[start+i], []byte(raw))
			if err != nil {
				return nil, domain.NewStoreError("getByIds", err)
			}
			out[start+i] = doc
		}
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, partial map[string]any) (*domain.Document, error) {
	var updated *domain.Document
	err := s.runTx(ctx, func(tx *redisTx) error {
		doc, err := tx.update(id, partial)
		if err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) SaveOrUpdate(ctx context.Context, id string, fields map[string]any) (*domain.Document, error) {
	var updated *domain.Document
	err := s.runTx(ctx, func(tx *redisTx) error {
		doc, err := tx.set(id, fields)
		if err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.docKey(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return domain.NewStoreError("delete", err)
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, s.docKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
	}
	_, err := pipe.Exec(ctx)
	return domain.NewStoreError("deleteBatch", err)
}

func (s *Store) Query(ctx context.Context, opts domain.QueryOptions) (*domain.QueryResult, error) {
	docs, err := s.allDocs(ctx)
	if err != nil {
		return nil, domain.NewStoreError("query", err)
	}

	matches := docs[:0]
	for _, doc := range docs {
		if domain.MatchesFilters(doc, opts.Filters) {
			matches = append(matches, doc)
		}
	}
	domain.SortDocuments(matches, opts.OrderBy)

	total := len(matches)
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	matches = matches[offset:]

	hasMore := false
	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
		hasMore = true
	}

	return &domain.QueryResult{Data: matches, Total: total, HasMore: hasMore}, nil
}

func (s *Store) GetPaginated(ctx context.Context, limit int, cursor string, orderBy *domain.OrderBy) (*domain.Page, error) {
	if limit <= 0 {
		limit = 20
	}

	docs, err := s.allDocs(ctx)
	if err != nil {
		return nil, domain.NewStoreError("getPaginated", err)
	}
	domain.SortDocuments(docs, orderBy)

	if cursor != "" {
		value, id, err := domain.DecodeCursor(cursor)
		if err != nil {
			return nil, domain.NewStoreError("getPaginated", err)
		}
		resumed := docs[:0]
		for _, doc := range docs {
			if domain.CursorPosition(doc, value, id, orderBy) {
				resumed = append(resumed, doc)
			}
		}
		docs = resumed
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	page := &domain.Page{Data: docs, HasMore: hasMore}
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		field := "created_at"
		if orderBy != nil {
			field = orderBy.Field
		}
		page.Cursor = domain.EncodeCursor(domain.FieldValue(last, field), last.ID)
	}
	return page, nil
}

func (s *Store) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	if len(filters) == 0 {
		n, err := s.client.ZCard(ctx, s.indexKey()).Result()
		return int(n), domain.NewStoreError("count", err)
	}
	res, err := s.Query(ctx, domain.QueryOptions{Filters: filters})
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.docKey(id)).Result()
	return n > 0, domain.NewStoreError("exists", err)
}

// RunTransaction runs fn under optimistic locking: every key fn reads is
// WATCHed, writes are buffered and applied in one MULTI/EXEC, and the whole
// round is retried when a watched key changed underneath.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx driven.Tx) error) error {
	return s.runTx(ctx, func(tx *redisTx) error { return fn(tx) })
}

func (s *Store) runTx(ctx context.Context, fn func(tx *redisTx) error) error {
	var err error
	for attempt := 0; attempt < txRetries; attempt++ {
		err = s.client.Watch(ctx, func(rtx *redis.Tx) error {
			view := &redisTx{ctx: ctx, store: s, rtx: rtx}
			if err := fn(view); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, write := range view.writes {
					write(pipe)
				}
				return nil
			})
			return err
		})
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.NewStoreError("runTransaction", err)
	}
	return err
}

func (s *Store) Subcollection(parentID, name string) driven.Store {
	return &Store{client: s.client, collection: s.collection + "/" + parentID + "/" + name}
}

// allDocs materializes the whole collection in index order.
func (s *Store) allDocs(ctx context.Context) ([]*domain.Document, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	docs, err := s.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Unwrap(err)
	}
	out := docs[:0]
	for _, doc := range docs {
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, nil
}

// redisTx buffers writes until the surrounding WATCH round commits. Reads
// observe pre-transaction state, which is the documented optimistic
// semantics of RunTransaction.
type redisTx struct {
	ctx    context.Context
	store  *Store
	rtx    *redis.Tx
	writes []func(pipe redis.Pipeliner)
}

func (t *redisTx) Get(id string) (*domain.Document, error) {
	key := t.store.docKey(id)
	if err := t.rtx.Watch(t.ctx, key).Err(); err != nil {
		return nil, err
	}
	data, err := t.rtx.Get(t.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDoc(id, data)
}

func (t *redisTx) Create(fields map[string]any) (*domain.Document, error) {
	now := time.Now().UTC()
	doc := &domain.Document{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	doc.MergeFields(fields)
	if err := t.queueWrite(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (t *redisTx) Set(id string, fields map[string]any) error {
	_, err := t.set(id, fields)
	return err
}

// set merges fields into the document (creating it when absent), queues the
// write and returns the stamped document.
func (t *redisTx) set(id string, fields map[string]any) (*domain.Document, error) {
	existing, err := t.Get(id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := existing
	if doc == nil {
		doc = &domain.Document{ID: id, CreatedAt: now}
	}
	doc.MergeFields(fields)
	if !now.After(doc.UpdatedAt) {
		now = doc.UpdatedAt.Add(time.Nanosecond)
	}
	doc.UpdatedAt = now
	if err := t.queueWrite(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (t *redisTx) Update(id string, partial map[string]any) error {
	_, err := t.update(id, partial)
	return err
}

// update is set for existing documents only.
func (t *redisTx) update(id string, partial map[string]any) (*domain.Document, error) {
	doc, err := t.Get(id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	doc.MergeFields(partial)
	now := time.Now().UTC()
	if !now.After(doc.UpdatedAt) {
		now = doc.UpdatedAt.Add(time.Nanosecond)
	}
	doc.UpdatedAt = now
	if err := t.queueWrite(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (t *redisTx) Delete(id string) error {
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Del(t.ctx, t.store.docKey(id))
		pipe.ZRem(t.ctx, t.store.indexKey(), id)
	})
	return nil
}

func (t *redisTx) queueWrite(doc *domain.Document) error {
	data, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	t.writes = append(t.writes, func(pipe redis.Pipeliner) {
		pipe.Set(t.ctx, t.store.docKey(doc.ID), data, 0)
		pipe.ZAdd(t.ctx, t.store.indexKey(), redis.Z{Score: float64(doc.CreatedAt.UnixNano()), Member: doc.ID})
	})
	return nil
}

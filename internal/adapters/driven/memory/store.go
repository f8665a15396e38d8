// Package memory provides an in-memory document store backend. It backs the
// service tests and deployments that run without an external datastore, and
// is the reference implementation of the Store contract.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// Verify interface compliance
var (
	_ driven.Database = (*Database)(nil)
	_ driven.Store    = (*Store)(nil)
)

// Database is an in-memory collection registry.
type Database struct {
	mu          sync.Mutex
	collections map[string]*Store
	now         func() time.Time
}

// NewDatabase creates an empty in-memory database.
func NewDatabase() *Database {
	return &Database{
		collections: make(map[string]*Store),
		now:         time.Now,
	}
}

// NewDatabaseWithClock creates a database with an injected clock, for tests
// that assert on timestamps.
func NewDatabaseWithClock(now func() time.Time) *Database {
	db := NewDatabase()
	if now != nil {
		db.now = now
	}
	return db
}

// Collection returns the store for a named collection, creating it lazily.
func (d *Database) Collection(name string) driven.Store {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.collections[name]; ok {
		return s
	}
	s := &Store{db: d, name: name, docs: make(map[string]*domain.Document)}
	d.collections[name] = s
	return s
}

// Ping always succeeds for the in-memory backend.
func (d *Database) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory backend.
func (d *Database) Close() error { return nil }

// Store is one in-memory collection.
type Store struct {
	db   *Database
	name string
	mu   sync.RWMutex
	docs map[string]*domain.Document
}

// stamp returns the write time, kept strictly after prev so per-document
// timestamps are monotonic non-decreasing even under a coarse clock.
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.db.now()
	if !now.After(prev) {
		return prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) Save(ctx context.Context, fields map[string]any) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("save", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(fields), nil
}

func (s *Store) createLocked(fields map[string]any) *domain.Document {
	now := s.db.now()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	doc.MergeFields(fields)
	s.docs[doc.ID] = doc
	return doc.Clone()
}

func (s *Store) SaveBatch(ctx context.Context, items []map[string]any) ([]*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("saveBatch", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Document, 0, len(items))
	for _, fields := range items {
		out = append(out, s.createLocked(fields))
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("getById", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id].Clone(), nil
}

func (s *Store) GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("getByIds", err)
	}
	out := make([]*domain.Document, len(ids))
	// Chunked for parity with backends that limit multi-get size.
	for start := 0; start < len(ids); start += driven.BatchChunkSize {
		end := start + driven.BatchChunkSize
		if end > len(ids) {
			end = len(ids)
		}
		s.mu.RLock()
		for i := start; i < end; i++ {
			out[i] = s.docs[ids[i]].Clone()
		}
		s.mu.RUnlock()
	}
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, partial map[string]any) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("update", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, partial)
}

func (s *Store) updateLocked(id string, partial map[string]any) (*domain.Document, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.MergeFields(partial)
	doc.UpdatedAt = s.stamp(doc.UpdatedAt)
	return doc.Clone(), nil
}

func (s *Store) SaveOrUpdate(ctx context.Context, id string, fields map[string]any) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("saveOrUpdate", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(id, fields), nil
}

func (s *Store) upsertLocked(id string, fields map[string]any) *domain.Document {
	if doc, ok := s.docs[id]; ok {
		doc.MergeFields(fields)
		doc.UpdatedAt = s.stamp(doc.UpdatedAt)
		return doc.Clone()
	}
	now := s.db.now()
	doc := &domain.Document{ID: id, CreatedAt: now, UpdatedAt: now}
	doc.MergeFields(fields)
	s.docs[id] = doc
	return doc.Clone()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("delete", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("deleteBatch", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.docs, id)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, opts domain.QueryOptions) (*domain.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("query", err)
	}
	matches := s.matching(opts.Filters)
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
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStoreError("getPaginated", err)
	}
	if limit <= 0 {
		limit = 20
	}

	docs := s.matching(nil)
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

	// Fetch limit+1 to detect hasMore without a count query.
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
	if err := ctx.Err(); err != nil {
		return 0, domain.NewStoreError("count", err)
	}
	if len(filters) == 0 {
		s.mu.RLock()
		defer s.mu.RUnlock()
		return len(s.docs), nil
	}
	return len(s.matching(filters)), nil
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.NewStoreError("exists", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.docs[id]
	return ok, nil
}

// RunTransaction serializes fn against all other writers on this collection.
// The in-memory backend never sees write contention, so no retry is needed.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx driven.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStoreError("runTransaction", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&memTx{store: s})
}

func (s *Store) Subcollection(parentID, name string) driven.Store {
	return s.db.Collection(s.name + "/" + parentID + "/" + name)
}

// matching returns clones of all documents satisfying the filters.
func (s *Store) matching(filters []domain.Filter) []*domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if domain.MatchesFilters(doc, filters) {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// memTx operates on the store map directly; the store lock is held for the
// whole transaction.
type memTx struct {
	store *Store
}

func (t *memTx) Get(id string) (*domain.Document, error) {
	return t.store.docs[id].Clone(), nil
}

func (t *memTx) Create(fields map[string]any) (*domain.Document, error) {
	return t.store.createLocked(fields), nil
}

func (t *memTx) Set(id string, fields map[string]any) error {
	t.store.upsertLocked(id, fields)
	return nil
}

func (t *memTx) Update(id string, partial map[string]any) error {
	_, err := t.store.updateLocked(id, partial)
	return err
}

func (t *memTx) Delete(id string) error {
	delete(t.store.docs, id)
	return nil
}

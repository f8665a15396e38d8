package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
	"github.com/prospect-labs/prospect-core/internal/core/ports/driven"
)

// setupTestStore creates a miniredis-backed store for one test.
func setupTestStore(t *testing.T) (driven.Store, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	db := NewDatabase(client)

	return db.Collection("test"), mr, func() {
		client.Close()
		mr.Close()
	}
}

func TestStore_SaveAndGet(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc, err := store.Save(ctx, map[string]any{"name": "alice"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if doc.ID == "" {
		t.Error("expected a generated ID")
	}

	got, err := store.GetByID(ctx, doc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Fields["name"] != "alice" {
		t.Errorf("unexpected document: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("expected timestamps round-tripped")
	}

	missing, err := store.GetByID(ctx, "nope")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing ID, got %+v", missing)
	}
}

func TestStore_GetByIDs(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	ids := make([]string, 0, driven.BatchChunkSize+3)
	for i := 0; i < driven.BatchChunkSize+3; i++ {
		doc, err := store.Save(ctx, map[string]any{"n": float64(i)})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, doc.ID)
	}

	lookup := []string{ids[0], "missing", ids[driven.BatchChunkSize+1]}
	docs, err := store.GetByIDs(ctx, lookup)
	if err != nil {
		t.Fatalf("getByIds: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(docs))
	}
	if docs[0] == nil || docs[0].ID != ids[0] {
		t.Errorf("slot 0: expected %s, got %+v", ids[0], docs[0])
	}
	if docs[1] != nil {
		t.Error("missing ID must map to a nil slot")
	}
	if docs[2] == nil || docs[2].ID != ids[driven.BatchChunkSize+1] {
		t.Errorf("slot 2 wrong: %+v", docs[2])
	}
}

func TestStore_Update(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc, _ := store.Save(ctx, map[string]any{"a": "1", "b": "2"})

	updated, err := store.Update(ctx, doc.ID, map[string]any{"b": "changed", "c": "new"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Fields["a"] != "1" || updated.Fields["b"] != "changed" || updated.Fields["c"] != "new" {
		t.Errorf("expected merged fields, got %+v", updated.Fields)
	}
	if !updated.UpdatedAt.After(doc.UpdatedAt) {
		t.Error("update must advance updatedAt")
	}
	if !updated.CreatedAt.Equal(doc.CreatedAt) {
		t.Error("update must not touch createdAt")
	}

	_, err = store.Update(ctx, "missing", map[string]any{"x": "y"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SaveOrUpdate(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first, err := store.SaveOrUpdate(ctx, "u1", map[string]any{"a": "1", "b": "2"})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.ID != "u1" {
		t.Errorf("expected caller-chosen ID, got %s", first.ID)
	}

	second, err := store.SaveOrUpdate(ctx, "u1", map[string]any{"b": "changed"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("upsert of an existing document must not touch createdAt")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("upsert of an existing document must advance updatedAt")
	}
	if second.Fields["a"] != "1" || second.Fields["b"] != "changed" {
		t.Errorf("expected merge semantics, got %+v", second.Fields)
	}

	n, _ := store.Count(ctx, nil)
	if n != 1 {
		t.Errorf("repeated upserts of one ID must keep one document, got %d", n)
	}
}

func TestStore_Update_ReturnsCommittedDocument(t *testing.T) {
	store, mr, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc, _ := store.Save(ctx, map[string]any{"a": "1"})
	updated, err := store.Update(ctx, doc.ID, map[string]any{"b": "2"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated == nil {
		t.Fatal("update must return the committed document")
	}

	// The returned document is the state written by the transaction, not a
	// later read; it stays usable even when the key vanishes right after.
	mr.FlushAll()
	if updated.Fields["a"] != "1" || updated.Fields["b"] != "2" {
		t.Errorf("expected committed fields, got %+v", updated.Fields)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("committed document must carry the stamped updatedAt")
	}

	mr.FlushAll()
	upserted, err := store.SaveOrUpdate(ctx, "u1", map[string]any{"name": "alice"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	mr.FlushAll()
	if upserted == nil || upserted.Fields["name"] != "alice" {
		t.Errorf("upsert must return the committed document, got %+v", upserted)
	}
}

func TestStore_Delete(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc, _ := store.Save(ctx, map[string]any{"x": "y"})
	if err := store.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	ok, err := store.Exists(ctx, doc.ID)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Error("document must be gone")
	}

	// The index entry went with it.
	n, _ := store.Count(ctx, nil)
	if n != 0 {
		t.Errorf("expected empty index, got %d", n)
	}
}

func TestStore_Query(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		kind := "odd"
		if i%2 == 0 {
			kind = "even"
		}
		if _, err := store.Save(ctx, map[string]any{"n": float64(i), "kind": kind}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	res, err := store.Query(ctx, domain.QueryOptions{
		Filters: []domain.Filter{{Field: "kind", Op: domain.FilterEq, Value: "even"}},
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if res.Total != 2 || len(res.Data) != 2 {
		t.Errorf("expected 2 even documents, got total=%d len=%d", res.Total, len(res.Data))
	}

	res, err = store.Query(ctx, domain.QueryOptions{
		OrderBy: &domain.OrderBy{Field: "n", Desc: true},
		Limit:   3,
	})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Data) != 3 || !res.HasMore {
		t.Fatalf("expected 3 of 4 with hasMore, got len=%d hasMore=%v", len(res.Data), res.HasMore)
	}
	if res.Data[0].Fields["n"] != float64(3) {
		t.Errorf("expected n desc order, got %v first", res.Data[0].Fields["n"])
	}
}

func TestStore_GetPaginated(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := store.Save(ctx, map[string]any{"n": float64(i)}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	seen := make(map[string]bool)
	cursor := ""
	pages := 0
	for {
		page, err := store.GetPaginated(ctx, 2, cursor, nil)
		if err != nil {
			t.Fatalf("page %d: %v", pages, err)
		}
		pages++
		if pages > 10 {
			t.Fatal("pagination did not terminate")
		}
		for _, d := range page.Data {
			if seen[d.ID] {
				t.Errorf("document %s returned twice", d.ID)
			}
			seen[d.ID] = true
		}
		if !page.HasMore {
			break
		}
		cursor = page.Cursor
	}

	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
	if len(seen) != 5 {
		t.Errorf("expected every document exactly once, got %d", len(seen))
	}
}

func TestStore_RunTransaction(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.SaveOrUpdate(ctx, "acct", map[string]any{"balance": float64(10)}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := store.RunTransaction(ctx, func(tx driven.Tx) error {
		doc, err := tx.Get("acct")
		if err != nil {
			return err
		}
		balance := doc.Fields["balance"].(float64)
		return tx.Update("acct", map[string]any{"balance": balance + 5})
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}

	got, _ := store.GetByID(ctx, "acct")
	if got.Fields["balance"] != float64(15) {
		t.Errorf("expected balance 15, got %v", got.Fields["balance"])
	}
}

func TestStore_RunTransaction_NotFound(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.RunTransaction(context.Background(), func(tx driven.Tx) error {
		return tx.Update("missing", map[string]any{"x": "y"})
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_RunTransaction_BufferedWrites(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.RunTransaction(ctx, func(tx driven.Tx) error {
		if err := tx.Set("d1", map[string]any{"x": "y"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error surfaced, got %v", err)
	}

	// The buffered write never committed.
	doc, _ := store.GetByID(ctx, "d1")
	if doc != nil {
		t.Error("aborted transaction must not write")
	}
}

func TestStore_Subcollection(t *testing.T) {
	store, _, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sub := store.Subcollection("u1", "notes")
	doc, err := sub.Save(ctx, map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("save in subcollection: %v", err)
	}

	n, _ := store.Count(ctx, nil)
	if n != 0 {
		t.Errorf("parent collection must stay empty, got %d", n)
	}

	got, err := sub.GetByID(ctx, doc.ID)
	if err != nil || got == nil {
		t.Errorf("expected subcollection document, got %+v (%v)", got, err)
	}

	other := store.Subcollection("u2", "notes")
	got, _ = other.GetByID(ctx, doc.ID)
	if got != nil {
		t.Error("sibling subcollection must be isolated")
	}
}

func TestDatabase_Ping(t *testing.T) {
	_, mr, cleanup := setupTestStore(t)
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	db := NewDatabase(client)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

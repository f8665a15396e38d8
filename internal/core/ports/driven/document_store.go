package driven

import (
	"context"

	"github.com/prospect-labs/prospect-core/internal/core/domain"
)

// BatchChunkSize is the largest multi-get a backend is asked to serve in one
// call. GetByIDs implementations chunk their lookups to this size.
const BatchChunkSize = 10

// Store is a collection-scoped document store. Implementations exist for
// in-memory maps (tests, datastore-free deployments), PostgreSQL and Redis;
// all share the same semantics so the services never see backend types.
//
// Every operation wraps backend failures in *domain.StoreError carrying the
// operation name. Absence is not an error for reads: GetByID returns
// (nil, nil) on a missing document.
type Store interface {
	// Save creates a document with a fresh generated ID, stamping both
	// timestamps, and returns the full stored document.
	Save(ctx context.Context, fields map[string]any) (*domain.Document, error)

	// SaveBatch creates the documents in input order. Creation is atomic per
	// item, not across items.
	SaveBatch(ctx context.Context, items []map[string]any) ([]*domain.Document, error)

	// GetByID retrieves a document, returning (nil, nil) when absent.
	GetByID(ctx context.Context, id string) (*domain.Document, error)

	// GetByIDs retrieves documents preserving input order and length; missing
	// IDs map to nil slots. Lookups are chunked to BatchChunkSize internally.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error)

	// Update merges partial fields into an existing document and bumps
	// updated_at. Fails with domain.ErrNotFound when the document is absent.
	Update(ctx context.Context, id string, partial map[string]any) (*domain.Document, error)

	// SaveOrUpdate is an idempotent upsert: creates with both timestamps when
	// absent, otherwise merges and bumps updated_at only.
	SaveOrUpdate(ctx context.Context, id string, fields map[string]any) (*domain.Document, error)

	// Delete removes a document. Absence of the target is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteBatch removes documents best-effort; missing IDs are skipped.
	DeleteBatch(ctx context.Context, ids []string) error

	// Query runs a filtered, ordered, offset-paginated query. Offset is
	// fetch-and-slice; deep paging should use GetPaginated.
	Query(ctx context.Context, opts domain.QueryOptions) (*domain.QueryResult, error)

	// GetPaginated scans limit documents past the opaque cursor, fetching
	// limit+1 to detect hasMore without a count query.
	GetPaginated(ctx context.Context, limit int, cursor string, orderBy *domain.OrderBy) (*domain.Page, error)

	// Count returns the number of documents matching the filters (all
	// documents when filters is empty).
	Count(ctx context.Context, filters []domain.Filter) (int, error)

	// Exists reports whether a document with the ID exists. Not-found is
	// never an error here.
	Exists(ctx context.Context, id string) (bool, error)

	// RunTransaction executes fn with read/write access the backend applies
	// atomically, retrying on contention. fn must be free of non-idempotent
	// external side effects because it may run more than once.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Subcollection returns a Store scoped to a path nested under a parent
	// document, sharing all of the above semantics.
	Subcollection(parentID, name string) Store
}

// Tx is the read/write view inside RunTransaction.
type Tx interface {
	// Get retrieves a document inside the transaction, (nil, nil) when absent.
	Get(id string) (*domain.Document, error)

	// Create inserts a new document with a generated ID.
	Create(fields map[string]any) (*domain.Document, error)

	// Set writes the full field map under the ID, creating if absent.
	Set(id string, fields map[string]any) error

	// Update merges partial fields; domain.ErrNotFound when absent.
	Update(id string, partial map[string]any) error

	// Delete removes the document if present.
	Delete(id string) error
}

// Database hands out collection-scoped stores over one backend connection.
type Database interface {
	// Collection returns the Store for a named top-level collection.
	Collection(name string) Store

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

package storage

import "context"

// WithoutID copies fields minus any caller-supplied id key; the driver
// alone assigns identifiers.
func WithoutID(fields map[string]any) map[string]any {
	if _, ok := fields["id"]; !ok {
		return fields
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// Filter is an exact-match AND-conjunction over entity fields.
type Filter map[string]any

// ListQuery bundles the optional filtering, ordering and pagination
// parameters of a List call.
type ListQuery struct {
	Filters Filter
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// CountSpec asks ListWithCounts to attach a relationship-count aggregate
// under Alias, counting TargetCollection entities linked by Kind.
type CountSpec struct {
	Alias            string
	Kind             RelationKind
	TargetCollection string
}

// IDriver is the single function-level contract both backend adapters
// implement. Every call reads the tenant scope from ctx and fails with
// ErrTenantScope when it is missing; rows from other tenants are never
// visible. Mutations are atomic per row or edge, nothing more.
type IDriver interface {
	// Create assigns timestamps, ignores any caller-supplied id field and
	// returns the stored entity with its canonical id.
	Create(ctx context.Context, collection string, fields map[string]any) (*Record, error)
	Get(ctx context.Context, id RecordID) (*Record, error)
	List(ctx context.Context, collection string, q ListQuery) ([]*Record, error)
	// Update merges the partial fields into the stored entity and
	// refreshes the updated timestamp. ErrNotFound when id is absent.
	Update(ctx context.Context, id RecordID, fields map[string]any) (*Record, error)
	// Upsert creates the record when absent and replaces its fields when
	// present. A zero-key id means create with a generated key; a concrete
	// key pins a deterministic record, used for singleton config rows.
	Upsert(ctx context.Context, id RecordID, fields map[string]any) (*Record, error)
	Delete(ctx context.Context, id RecordID) (bool, error)
	// BulkInsert stores the rows in order. With ignoreDuplicates set, a
	// uniqueness violation skips that row without aborting the batch; the
	// returned slice holds only the rows that persisted.
	BulkInsert(ctx context.Context, collection string, rows []map[string]any, ignoreDuplicates bool) ([]*Record, error)

	// Relate is idempotent: relating the same triple twice leaves one edge.
	Relate(ctx context.Context, source RecordID, kind RelationKind, target RecordID) error
	Unrelate(ctx context.Context, source RecordID, kind RelationKind, target RecordID) error
	RelatedExists(ctx context.Context, source RecordID, kind RelationKind, target RecordID) (bool, error)
	// ListRelated traverses the edge from either endpoint; anchor may sit
	// on the source or the target side of the kind.
	ListRelated(ctx context.Context, anchor RecordID, kind RelationKind, targetCollection string) ([]*Record, error)
	CountRelated(ctx context.Context, anchor RecordID, kind RelationKind, targetCollection string) (int64, error)
	ListWithCounts(ctx context.Context, collection string, counts []CountSpec, q ListQuery) ([]*Record, error)

	Close() error
}

// TextHit is one full-text match before merging. Parent identifies the
// entity the hit deduplicates under (the owning source for chunks and
// insights, the entity itself otherwise).
type TextHit struct {
	ID      RecordID
	Parent  RecordID
	Title   string
	Snippet string
	Score   float64
}

// VectorHit is one similarity match before merging.
type VectorHit struct {
	ID         RecordID
	Parent     RecordID
	Title      string
	Content    string
	Similarity float64
}

// SearchScope selects which content types a search touches.
type SearchScope struct {
	Sources bool
	Notes   bool
}

// ISearchDriver exposes the backend-native search primitives. Results are
// raw per-row candidates; merging, parent dedup and truncation happen in
// the search service.
type ISearchDriver interface {
	SearchText(ctx context.Context, query string, scope SearchScope, limit int) ([]TextHit, error)
	SearchVector(ctx context.Context, vector []float32, scope SearchScope, limit int, minSimilarity float64) ([]VectorHit, error)
}

package interfaces

import (
	"context"

	"github.com/contech-ims/binsight/pkg/domain/model"
)

// VectorStore defines the interface for per-building vector collections.
// Implementations are expected to be eventually consistent shortly after
// writes; the index builder compensates with read-back verification.
type VectorStore interface {
	// CreateCollection creates (or recreates after DeleteCollection) the
	// collection for a building with the given embedding dimension. The
	// sidecar status is managed separately via PutStatus.
	CreateCollection(ctx context.Context, buildingID string, dimension int) error

	// DeleteCollection removes the building's records and sidecar status.
	// It returns only after the deletion is observably complete, i.e. a
	// read-back no longer sees any record. Deleting a missing collection is
	// not an error.
	DeleteCollection(ctx context.Context, buildingID string) error

	// ListCollections returns the building IDs that have a collection.
	ListCollections(ctx context.Context) ([]string, error)

	// Upsert writes records into the building's collection. Records whose
	// embedding dimension does not match the collection's are rejected as a
	// whole. Upserting the same ID twice is idempotent.
	Upsert(ctx context.Context, buildingID string, records []*model.VectorRecord) error

	// Fetch retrieves records by ID. Missing IDs are absent from the result
	// map rather than an error; a missing collection returns ErrNotFound.
	Fetch(ctx context.Context, buildingID string, ids []model.RecordID) (map[model.RecordID]*model.VectorRecord, error)

	// Query performs a top-K cosine similarity search over the building's
	// collection, returning snippets ordered by descending score. A missing
	// collection returns ErrNotFound; zero matches return an empty slice.
	Query(ctx context.Context, buildingID string, embedding []float32, topK int) ([]*model.Snippet, error)

	// GetStatus returns the sidecar readiness record for a building, or
	// ErrNotFound when the building was never ingested.
	GetStatus(ctx context.Context, buildingID string) (*model.IndexStatus, error)

	// PutStatus writes the sidecar readiness record.
	PutStatus(ctx context.Context, status *model.IndexStatus) error

	// DeleteStatus removes the sidecar readiness record. Deleting a missing
	// status is not an error.
	DeleteStatus(ctx context.Context, buildingID string) error

	// Close releases the underlying client.
	Close() error
}

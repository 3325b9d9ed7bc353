package model

import (
	"fmt"
	"time"

	"github.com/contech-ims/binsight/pkg/domain/types"
	"github.com/google/uuid"
)

// EmbeddingDimension is the dimension of the embedding vector.
// OpenAI text-embedding models emit 1536 dimensions; the vector collections
// are created with exactly this dimension and a cosine metric, and any
// mismatch is a hard failure rather than a silent truncation.
const EmbeddingDimension = 1536

// RecordID identifies a vector record within a building's collection
type RecordID string

// NewRecordID generates a collection-unique record ID. The building and
// document numbers are kept in the ID for log readability; uniqueness comes
// from the UUID suffix.
func NewRecordID(buildingID, documentID string) RecordID {
	return RecordID(fmt.Sprintf("%s-%s-%s", buildingID, documentID, uuid.New().String()))
}

// CollectionName derives the deterministic vector collection name for a
// building. A collection's existence is the signal that the building has been
// ingested; readiness is tracked separately via IndexStatus.
func CollectionName(buildingID string) string {
	return fmt.Sprintf("building-%s-cos", buildingID)
}

// RecordMetadata carries everything needed to render a human-readable
// citation without a second lookup.
type RecordMetadata struct {
	BuildingID string
	DocumentID string
	Address    string
	SourceLink string
	Text       string
}

// VectorRecord is the persisted unit inside a vector collection. Records are
// immutable once verified; they are removed only by recreating the whole
// collection.
type VectorRecord struct {
	ID        RecordID
	Embedding []float32
	Metadata  RecordMetadata
}

// NewVectorRecord builds a record from a validated document unit and its
// embedding vector.
func NewVectorRecord(unit *DocumentUnit, embedding []float32) *VectorRecord {
	return &VectorRecord{
		ID:        NewRecordID(unit.BuildingID, unit.DocumentID),
		Embedding: embedding,
		Metadata: RecordMetadata{
			BuildingID: unit.BuildingID,
			DocumentID: unit.DocumentID,
			Address:    unit.Address,
			SourceLink: unit.SourceLink,
			Text:       unit.Text,
		},
	}
}

// IndexStatus is the sidecar readiness record for a building's collection.
// The store has no first-class "fully populated" flag, so run completion is
// recorded here explicitly and checked before any query.
type IndexStatus struct {
	BuildingID    string
	State         types.IndexState
	VerifiedCount int
	UpdatedAt     time.Time
}

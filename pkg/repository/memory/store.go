package memory

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

var ErrNotFound = goerr.New("not found")

type collection struct {
	dimension int
	records   map[model.RecordID]*model.VectorRecord
}

// Store is an in-memory VectorStore for local development and tests.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	statuses    map[string]*model.IndexStatus
}

var _ interfaces.VectorStore = &Store{}

func New() *Store {
	return &Store{
		collections: make(map[string]*collection),
		statuses:    make(map[string]*model.IndexStatus),
	}
}

func copyRecord(r *model.VectorRecord) *model.VectorRecord {
	copied := &model.VectorRecord{
		ID:       r.ID,
		Metadata: r.Metadata,
	}
	if r.Embedding != nil {
		copied.Embedding = make([]float32, len(r.Embedding))
		copy(copied.Embedding, r.Embedding)
	}
	return copied
}

func (s *Store) CreateCollection(ctx context.Context, buildingID string, dimension int) error {
	if dimension <= 0 {
		return goerr.New("invalid dimension", goerr.V("dimension", dimension))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[buildingID] = &collection{
		dimension: dimension,
		records:   make(map[model.RecordID]*model.VectorRecord),
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, buildingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.collections, buildingID)
	delete(s.statuses, buildingID)
	return nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Upsert(ctx context.Context, buildingID string, records []*model.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, exists := s.collections[buildingID]
	if !exists {
		return goerr.Wrap(ErrNotFound, "collection not found", goerr.V("buildingID", buildingID))
	}

	for _, r := range records {
		if len(r.Embedding) != coll.dimension {
			return goerr.New("embedding dimension mismatch",
				goerr.V("recordID", r.ID),
				goerr.V("expected", coll.dimension),
				goerr.V("actual", len(r.Embedding)))
		}
	}

	for _, r := range records {
		coll.records[r.ID] = copyRecord(r)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, buildingID string, ids []model.RecordID) (map[model.RecordID]*model.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, exists := s.collections[buildingID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "collection not found", goerr.V("buildingID", buildingID))
	}

	result := make(map[model.RecordID]*model.VectorRecord, len(ids))
	for _, id := range ids {
		if r, ok := coll.records[id]; ok {
			result[id] = copyRecord(r)
		}
	}
	return result, nil
}

func (s *Store) Query(ctx context.Context, buildingID string, embedding []float32, topK int) ([]*model.Snippet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, exists := s.collections[buildingID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "collection not found", goerr.V("buildingID", buildingID))
	}
	if len(embedding) != coll.dimension {
		return nil, goerr.New("embedding dimension mismatch",
			goerr.V("expected", coll.dimension),
			goerr.V("actual", len(embedding)))
	}

	type scored struct {
		record *model.VectorRecord
		score  float64
	}

	var candidates []scored
	for _, r := range coll.records {
		candidates = append(candidates, scored{
			record: r,
			score:  cosineSimilarity(embedding, r.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	snippets := make([]*model.Snippet, topK)
	for i := 0; i < topK; i++ {
		c := candidates[i]
		snippets[i] = &model.Snippet{
			Text:       c.record.Metadata.Text,
			Address:    c.record.Metadata.Address,
			DocumentID: c.record.Metadata.DocumentID,
			SourceLink: c.record.Metadata.SourceLink,
			Score:      c.score,
		}
	}
	return snippets, nil
}

func (s *Store) GetStatus(ctx context.Context, buildingID string) (*model.IndexStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.statuses[buildingID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "index status not found", goerr.V("buildingID", buildingID))
	}

	copied := *st
	return &copied, nil
}

func (s *Store) PutStatus(ctx context.Context, status *model.IndexStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *status
	copied.UpdatedAt = time.Now().UTC()
	s.statuses[status.BuildingID] = &copied
	return nil
}

func (s *Store) DeleteStatus(ctx context.Context, buildingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.statuses, buildingID)
	return nil
}

func (s *Store) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}

	return dot / denom
}

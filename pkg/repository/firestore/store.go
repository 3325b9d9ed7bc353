package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrNotFound = goerr.New("not found")

const (
	buildingsCollection = "buildings"
	vectorsCollection   = "vectors"
	deleteBatchSize     = 100
	deletePollInterval  = 500 * time.Millisecond
	deletePollAttempts  = 20
)

// Store is the Firestore-backed VectorStore. Each building gets a sidecar
// document at buildings/{bin} and its vector records under
// buildings/{bin}/vectors/{id} with Vector32 embeddings for FindNearest.
type Store struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.VectorStore = &Store{}

type Option func(*Store)

func WithCollectionPrefix(prefix string) Option {
	return func(s *Store) {
		s.collectionPrefix = prefix
	}
}

func New(ctx context.Context, projectID, databaseID string, opts ...Option) (*Store, error) {
	if databaseID == "" {
		databaseID = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	s := &Store{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) buildings() *firestore.CollectionRef {
	return s.client.Collection(s.collectionPrefix + buildingsCollection)
}

func (s *Store) buildingDoc(buildingID string) *firestore.DocumentRef {
	return s.buildings().Doc(buildingID)
}

func (s *Store) vectors(buildingID string) *firestore.CollectionRef {
	return s.buildingDoc(buildingID).Collection(vectorsCollection)
}

// buildingDocData is the buildings/{bin} sidecar document. Collection
// carries the derived collection name so the document stays traceable to
// the external naming scheme.
type buildingDocData struct {
	BuildingID    string    `firestore:"BuildingID"`
	Collection    string    `firestore:"Collection"`
	Dimension     int       `firestore:"Dimension"`
	State         string    `firestore:"State,omitempty"`
	VerifiedCount int       `firestore:"VerifiedCount"`
	UpdatedAt     time.Time `firestore:"UpdatedAt"`
}

func (s *Store) CreateCollection(ctx context.Context, buildingID string, dimension int) error {
	if dimension <= 0 {
		return goerr.New("invalid dimension", goerr.V("dimension", dimension))
	}

	doc := &buildingDocData{
		BuildingID: buildingID,
		Collection: model.CollectionName(buildingID),
		Dimension:  dimension,
		UpdatedAt:  time.Now().UTC(),
	}
	if _, err := s.buildingDoc(buildingID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to create collection", goerr.V("buildingID", buildingID))
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, buildingID string) error {
	if err := s.deleteAllVectors(ctx, buildingID); err != nil {
		return err
	}

	if _, err := s.buildingDoc(buildingID).Delete(ctx); err != nil {
		if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to delete building doc", goerr.V("buildingID", buildingID))
		}
	}

	return s.waitForEmpty(ctx, buildingID)
}

func (s *Store) deleteAllVectors(ctx context.Context, buildingID string) error {
	for {
		iter := s.vectors(buildingID).Limit(deleteBatchSize).Documents(ctx)
		batch := s.client.BulkWriter(ctx)
		deleted := 0

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to iterate vectors for deletion", goerr.V("buildingID", buildingID))
			}
			if _, err := batch.Delete(doc.Ref); err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to enqueue vector deletion", goerr.V("buildingID", buildingID))
			}
			deleted++
		}
		iter.Stop()
		batch.End()

		if deleted < deleteBatchSize {
			return nil
		}
	}
}

// waitForEmpty polls until a read-back observes zero vector records, so
// callers can recreate the collection without racing the deletion.
func (s *Store) waitForEmpty(ctx context.Context, buildingID string) error {
	for attempt := 0; attempt < deletePollAttempts; attempt++ {
		iter := s.vectors(buildingID).Limit(1).Documents(ctx)
		_, err := iter.Next()
		iter.Stop()

		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return goerr.Wrap(err, "failed to verify collection deletion", goerr.V("buildingID", buildingID))
		}

		select {
		case <-ctx.Done():
			return goerr.Wrap(ctx.Err(), "canceled while waiting for collection deletion")
		case <-time.After(deletePollInterval):
		}
	}

	return goerr.New("collection deletion did not complete", goerr.V("buildingID", buildingID))
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	iter := s.buildings().Documents(ctx)
	defer iter.Stop()

	var names []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate buildings")
		}
		names = append(names, doc.Ref.ID)
	}
	return names, nil
}

func (s *Store) collectionDimension(ctx context.Context, buildingID string) (int, error) {
	doc, err := s.buildingDoc(buildingID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, goerr.Wrap(ErrNotFound, "collection not found", goerr.V("buildingID", buildingID))
		}
		return 0, goerr.Wrap(err, "failed to get building doc", goerr.V("buildingID", buildingID))
	}

	var d buildingDocData
	if err := doc.DataTo(&d); err != nil {
		return 0, goerr.Wrap(err, "failed to unmarshal building doc", goerr.V("buildingID", buildingID))
	}
	return d.Dimension, nil
}

func (s *Store) Upsert(ctx context.Context, buildingID string, records []*model.VectorRecord) error {
	dimension, err := s.collectionDimension(ctx, buildingID)
	if err != nil {
		return err
	}

	for _, r := range records {
		if len(r.Embedding) != dimension {
			return goerr.New("embedding dimension mismatch",
				goerr.V("recordID", r.ID),
				goerr.V("expected", dimension),
				goerr.V("actual", len(r.Embedding)))
		}
	}

	bw := s.client.BulkWriter(ctx)
	for _, r := range records {
		ref := s.vectors(buildingID).Doc(string(r.ID))
		if _, err := bw.Set(ref, toVectorDoc(r)); err != nil {
			return goerr.Wrap(err, "failed to enqueue vector upsert", goerr.V("recordID", r.ID))
		}
	}
	bw.End()

	return nil
}

func (s *Store) Fetch(ctx context.Context, buildingID string, ids []model.RecordID) (map[model.RecordID]*model.VectorRecord, error) {
	if _, err := s.collectionDimension(ctx, buildingID); err != nil {
		return nil, err
	}

	refs := make([]*firestore.DocumentRef, len(ids))
	for i, id := range ids {
		refs[i] = s.vectors(buildingID).Doc(string(id))
	}

	docs, err := s.client.GetAll(ctx, refs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch vectors", goerr.V("buildingID", buildingID))
	}

	result := make(map[model.RecordID]*model.VectorRecord, len(ids))
	for _, doc := range docs {
		if !doc.Exists() {
			continue
		}
		var d vectorDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector", goerr.V("docID", doc.Ref.ID))
		}
		record := fromVectorDoc(&d)
		result[record.ID] = record
	}
	return result, nil
}

func (s *Store) Query(ctx context.Context, buildingID string, embedding []float32, topK int) ([]*model.Snippet, error) {
	dimension, err := s.collectionDimension(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if len(embedding) != dimension {
		return nil, goerr.New("embedding dimension mismatch",
			goerr.V("expected", dimension),
			goerr.V("actual", len(embedding)))
	}

	vq := s.vectors(buildingID).FindNearest(
		vectorEmbeddingField,
		firestore.Vector32(embedding),
		topK,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: vectorDistanceField},
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	snippets := make([]*model.Snippet, 0, topK)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results", goerr.V("buildingID", buildingID))
		}

		var d vectorDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal vector search result", goerr.V("docID", doc.Ref.ID))
		}

		snippets = append(snippets, &model.Snippet{
			Text:       d.Text,
			Address:    d.Address,
			DocumentID: d.DocumentID,
			SourceLink: d.SourceLink,
			Score:      similarityFromDistance(doc),
		})
	}
	return snippets, nil
}

// similarityFromDistance converts the cosine distance that FindNearest
// writes into DistanceResultField to a similarity score.
func similarityFromDistance(doc *firestore.DocumentSnapshot) float64 {
	v, err := doc.DataAt(vectorDistanceField)
	if err != nil {
		return 0
	}
	d, ok := v.(float64)
	if !ok {
		return 0
	}
	return 1 - d
}

func (s *Store) GetStatus(ctx context.Context, buildingID string) (*model.IndexStatus, error) {
	doc, err := s.buildingDoc(buildingID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "index status not found", goerr.V("buildingID", buildingID))
		}
		return nil, goerr.Wrap(err, "failed to get index status", goerr.V("buildingID", buildingID))
	}

	var d buildingDocData
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal index status", goerr.V("buildingID", buildingID))
	}
	if d.State == "" {
		return nil, goerr.Wrap(ErrNotFound, "index status not found", goerr.V("buildingID", buildingID))
	}

	state, err := types.ParseIndexState(d.State)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid index state in store", goerr.V("buildingID", buildingID))
	}

	return &model.IndexStatus{
		BuildingID:    d.BuildingID,
		State:         state,
		VerifiedCount: d.VerifiedCount,
		UpdatedAt:     d.UpdatedAt,
	}, nil
}

func (s *Store) PutStatus(ctx context.Context, st *model.IndexStatus) error {
	updates := []firestore.Update{
		{Path: "BuildingID", Value: st.BuildingID},
		{Path: "State", Value: st.State.String()},
		{Path: "VerifiedCount", Value: st.VerifiedCount},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	}
	if _, err := s.buildingDoc(st.BuildingID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "collection not found", goerr.V("buildingID", st.BuildingID))
		}
		return goerr.Wrap(err, "failed to put index status", goerr.V("buildingID", st.BuildingID))
	}
	return nil
}

func (s *Store) DeleteStatus(ctx context.Context, buildingID string) error {
	updates := []firestore.Update{
		{Path: "State", Value: firestore.Delete},
		{Path: "VerifiedCount", Value: firestore.Delete},
	}
	if _, err := s.buildingDoc(buildingID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to delete index status", goerr.V("buildingID", buildingID))
	}
	return nil
}

func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/domain/types"
	"github.com/contech-ims/binsight/pkg/repository/firestore"
	"github.com/contech-ims/binsight/pkg/repository/memory"
	"github.com/m-mizutani/gt"
)

const testDimension = 4

func testRecord(buildingID, documentID string, embedding []float32) *model.VectorRecord {
	unit := &model.DocumentUnit{
		BuildingID: buildingID,
		DocumentID: documentID,
		SourceLink: "https://example.com/" + documentID + ".pdf",
		Address:    "100 Gold Street",
		Text:       "Certificate of occupancy issued for residential use.",
	}
	return model.NewVectorRecord(unit, embedding)
}

func runVectorStoreTest(t *testing.T, newStore func(t *testing.T) interfaces.VectorStore) {
	t.Helper()

	newBuildingID := func() string {
		return fmt.Sprintf("test-%d", time.Now().UnixNano())
	}

	t.Run("CreateCollection then ListCollections", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		names, err := store.ListCollections(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, names).Has(bin)
	})

	t.Run("Upsert and Fetch round-trip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		r1 := testRecord(bin, "CO-001", []float32{0.1, 0.2, 0.3, 0.4})
		r2 := testRecord(bin, "CO-002", []float32{0.5, 0.6, 0.7, 0.8})
		gt.NoError(t, store.Upsert(ctx, bin, []*model.VectorRecord{r1, r2})).Required()

		fetched, err := store.Fetch(ctx, bin, []model.RecordID{r1.ID, r2.ID, "missing-id"})
		gt.NoError(t, err).Required()
		gt.Map(t, fetched).HasKey(r1.ID)
		gt.Map(t, fetched).HasKey(r2.ID)
		gt.Number(t, len(fetched)).Equal(2)

		got := fetched[r1.ID]
		gt.Value(t, got.Metadata.DocumentID).Equal("CO-001")
		gt.Value(t, got.Metadata.BuildingID).Equal(bin)
		gt.Array(t, got.Embedding).Length(testDimension)
		gt.Value(t, got.Embedding[0]).Equal(float32(0.1))
	})

	t.Run("Upsert same ID is idempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		r := testRecord(bin, "CO-001", []float32{0.1, 0.2, 0.3, 0.4})
		gt.NoError(t, store.Upsert(ctx, bin, []*model.VectorRecord{r})).Required()

		r.Metadata.Text = "Amended certificate text."
		gt.NoError(t, store.Upsert(ctx, bin, []*model.VectorRecord{r})).Required()

		fetched, err := store.Fetch(ctx, bin, []model.RecordID{r.ID})
		gt.NoError(t, err).Required()
		gt.Number(t, len(fetched)).Equal(1)
		gt.Value(t, fetched[r.ID].Metadata.Text).Equal("Amended certificate text.")
	})

	t.Run("Upsert rejects dimension mismatch as a whole", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		good := testRecord(bin, "CO-001", []float32{0.1, 0.2, 0.3, 0.4})
		bad := testRecord(bin, "CO-002", []float32{0.1, 0.2})
		err := store.Upsert(ctx, bin, []*model.VectorRecord{good, bad})
		gt.Error(t, err)

		fetched, err := store.Fetch(ctx, bin, []model.RecordID{good.ID})
		gt.NoError(t, err).Required()
		gt.Number(t, len(fetched)).Equal(0)
	})

	t.Run("Upsert to missing collection returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		r := testRecord(bin, "CO-001", []float32{0.1, 0.2, 0.3, 0.4})
		err := store.Upsert(ctx, bin, []*model.VectorRecord{r})
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, memory.ErrNotFound) || errors.Is(err, firestore.ErrNotFound)).True()
	})

	t.Run("Query orders snippets by descending similarity", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		near := testRecord(bin, "CO-NEAR", []float32{1, 0, 0, 0})
		mid := testRecord(bin, "CO-MID", []float32{1, 1, 0, 0})
		far := testRecord(bin, "CO-FAR", []float32{0, 0, 1, 0})
		gt.NoError(t, store.Upsert(ctx, bin, []*model.VectorRecord{far, mid, near})).Required()

		snippets, err := store.Query(ctx, bin, []float32{1, 0, 0, 0}, 2)
		gt.NoError(t, err).Required()
		gt.Array(t, snippets).Length(2).Required()
		gt.Value(t, snippets[0].DocumentID).Equal("CO-NEAR")
		gt.Value(t, snippets[1].DocumentID).Equal("CO-MID")
		gt.Bool(t, snippets[0].Score >= snippets[1].Score).True()
	})

	t.Run("Query missing collection returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Query(ctx, newBuildingID(), []float32{1, 0, 0, 0}, 5)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, memory.ErrNotFound) || errors.Is(err, firestore.ErrNotFound)).True()
	})

	t.Run("Query rejects dimension mismatch", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		_, err := store.Query(ctx, bin, []float32{1, 0}, 5)
		gt.Error(t, err)
	})

	t.Run("DeleteCollection removes records and status", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()

		r := testRecord(bin, "CO-001", []float32{0.1, 0.2, 0.3, 0.4})
		gt.NoError(t, store.Upsert(ctx, bin, []*model.VectorRecord{r})).Required()
		gt.NoError(t, store.PutStatus(ctx, &model.IndexStatus{
			BuildingID: bin,
			State:      types.IndexStateReady,
		})).Required()

		gt.NoError(t, store.DeleteCollection(ctx, bin)).Required()

		_, err := store.Fetch(ctx, bin, []model.RecordID{r.ID})
		gt.Error(t, err)

		_, err = store.GetStatus(ctx, bin)
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, memory.ErrNotFound) || errors.Is(err, firestore.ErrNotFound)).True()
	})

	t.Run("DeleteCollection of missing collection is not an error", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		gt.NoError(t, store.DeleteCollection(ctx, newBuildingID()))
	})

	t.Run("Status round-trip and state transitions", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		gt.NoError(t, store.PutStatus(ctx, &model.IndexStatus{
			BuildingID: bin,
			State:      types.IndexStateBuilding,
		})).Required()

		st, err := store.GetStatus(ctx, bin)
		gt.NoError(t, err).Required()
		gt.Value(t, st.State).Equal(types.IndexStateBuilding)
		gt.Bool(t, st.UpdatedAt.IsZero()).False()

		gt.NoError(t, store.PutStatus(ctx, &model.IndexStatus{
			BuildingID:    bin,
			State:         types.IndexStateReady,
			VerifiedCount: 42,
		})).Required()

		st, err = store.GetStatus(ctx, bin)
		gt.NoError(t, err).Required()
		gt.Value(t, st.State).Equal(types.IndexStateReady)
		gt.Number(t, st.VerifiedCount).Equal(42)
	})

	t.Run("DeleteStatus leaves the collection in place", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, testDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		gt.NoError(t, store.PutStatus(ctx, &model.IndexStatus{
			BuildingID: bin,
			State:      types.IndexStateBuilding,
		})).Required()
		gt.NoError(t, store.DeleteStatus(ctx, bin)).Required()

		_, err := store.GetStatus(ctx, bin)
		gt.Error(t, err)

		names, err := store.ListCollections(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, names).Has(bin)
	})

	t.Run("GetStatus for never-ingested building returns ErrNotFound", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.GetStatus(ctx, newBuildingID())
		gt.Error(t, err)
		gt.Bool(t, errors.Is(err, memory.ErrNotFound) || errors.Is(err, firestore.ErrNotFound)).True()
	})

	t.Run("Full-dimension embedding is preserved", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		bin := newBuildingID()
		gt.NoError(t, store.CreateCollection(ctx, bin, model.EmbeddingDimension)).Required()
		t.Cleanup(func() { gt.NoError(t, store.DeleteCollection(ctx, bin)) })

		embedding := make([]float32, model.EmbeddingDimension)
		for i := range embedding {
			embedding[i] = float32(i) / float32(model.EmbeddingDimension)
		}
		r := testRecord(bin, "CO-001", embedding)
		gt.NoError(t, store.Upsert(ctx, bin, []*model.VectorRecord{r})).Required()

		fetched, err := store.Fetch(ctx, bin, []model.RecordID{r.ID})
		gt.NoError(t, err).Required()
		gt.Array(t, fetched[r.ID].Embedding).Length(model.EmbeddingDimension)
		expectedLast := float32(model.EmbeddingDimension-1) / float32(model.EmbeddingDimension)
		gt.Value(t, fetched[r.ID].Embedding[model.EmbeddingDimension-1]).Equal(expectedLast)
	})
}

func newFirestoreStore(t *testing.T) interfaces.VectorStore {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	ctx := context.Background()
	store, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix("test-"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, store.Close())
	})
	return store
}

func TestMemoryVectorStore(t *testing.T) {
	runVectorStoreTest(t, func(t *testing.T) interfaces.VectorStore {
		return memory.New()
	})
}

func TestFirestoreVectorStore(t *testing.T) {
	runVectorStoreTest(t, newFirestoreStore)
}

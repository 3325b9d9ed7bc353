package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/domain/types"
	"github.com/contech-ims/binsight/pkg/utils/logging"
	"github.com/contech-ims/binsight/pkg/utils/retry"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// IndexUseCase rebuilds a building's vector collection from its CO
// document units.
type IndexUseCase struct {
	store    interfaces.VectorStore
	embedder interfaces.EmbeddingClient
	cfg      IndexConfig
}

func NewIndexUseCase(store interfaces.VectorStore, embedder interfaces.EmbeddingClient, cfg IndexConfig) *IndexUseCase {
	return &IndexUseCase{
		store:    store,
		embedder: embedder,
		cfg:      cfg,
	}
}

// BuildResult reports the outcome of one building's index rebuild.
type BuildResult struct {
	BuildingID string
	Verified   int
	Failed     int
	Dropped    int
	Skipped    bool
}

// BuildIndex recreates the building's collection and fills it with
// embedded document units. Callers must not run two builds for the same
// building concurrently; distinct buildings are safe in parallel.
//
// Invalid units are filtered, failed embeddings are dropped with a
// warning, and every upserted batch is verified by read-back. Records
// still unverified after the retry budget leave the index marked Failed
// and the call returns ErrIncompleteIndex.
func (uc *IndexUseCase) BuildIndex(ctx context.Context, buildingID string, units []*model.DocumentUnit) (*BuildResult, error) {
	if buildingID == "" {
		return nil, ErrEmptyBuildingID
	}

	logger := logging.From(ctx)
	result := &BuildResult{BuildingID: buildingID}

	if err := uc.store.DeleteCollection(ctx, buildingID); err != nil {
		return nil, goerr.Wrap(err, "failed to delete existing collection", goerr.V("buildingID", buildingID))
	}
	if err := uc.store.CreateCollection(ctx, buildingID, model.EmbeddingDimension); err != nil {
		return nil, goerr.Wrap(err, "failed to create collection", goerr.V("buildingID", buildingID))
	}
	if err := uc.store.PutStatus(ctx, &model.IndexStatus{
		BuildingID: buildingID,
		State:      types.IndexStateBuilding,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to mark index as building", goerr.V("buildingID", buildingID))
	}

	valid := make([]*model.DocumentUnit, 0, len(units))
	for _, unit := range units {
		if err := unit.Validate(); err != nil {
			logger.Warn("Skipping invalid document unit",
				slog.String("buildingID", buildingID),
				slog.String("documentID", unit.DocumentID),
				slog.Any("error", err))
			result.Dropped++
			continue
		}
		valid = append(valid, unit)
	}

	if len(valid) == 0 {
		logger.Info("No valid documents to index", slog.String("buildingID", buildingID))
		if err := uc.store.DeleteStatus(ctx, buildingID); err != nil {
			return nil, goerr.Wrap(err, "failed to clear index status", goerr.V("buildingID", buildingID))
		}
		result.Skipped = true
		return result, nil
	}

	records, dropped, err := uc.embedUnits(ctx, valid)
	if err != nil {
		return nil, err
	}
	result.Dropped += dropped

	for start := 0; start < len(records); start += uc.cfg.BatchSize {
		end := start + uc.cfg.BatchSize
		if end > len(records) {
			end = len(records)
		}

		verified, failed, err := uc.upsertAndVerify(ctx, buildingID, records[start:end])
		if err != nil {
			return nil, err
		}
		result.Verified += verified
		result.Failed += failed
	}

	if result.Failed > 0 {
		if err := uc.store.PutStatus(ctx, &model.IndexStatus{
			BuildingID:    buildingID,
			State:         types.IndexStateFailed,
			VerifiedCount: result.Verified,
		}); err != nil {
			return nil, goerr.Wrap(err, "failed to mark index as failed", goerr.V("buildingID", buildingID))
		}
		return result, goerr.Wrap(ErrIncompleteIndex, "some records could not be verified",
			goerr.V("buildingID", buildingID),
			goerr.V("failed", result.Failed),
			goerr.V("verified", result.Verified))
	}

	if err := uc.store.PutStatus(ctx, &model.IndexStatus{
		BuildingID:    buildingID,
		State:         types.IndexStateReady,
		VerifiedCount: result.Verified,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to mark index as ready", goerr.V("buildingID", buildingID))
	}

	logger.Info("Index build complete",
		slog.String("buildingID", buildingID),
		slog.Int("verified", result.Verified),
		slog.Int("dropped", result.Dropped))
	return result, nil
}

// Status returns the building's sidecar readiness record, or nil when
// the building was never ingested.
func (uc *IndexUseCase) Status(ctx context.Context, buildingID string) (*model.IndexStatus, error) {
	status, err := uc.store.GetStatus(ctx, buildingID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get index status", goerr.V("buildingID", buildingID))
	}
	return status, nil
}

// embedUnits generates embeddings for all units with bounded
// concurrency. A unit whose embedding fails or comes back with the
// wrong dimension is dropped, never the whole run.
func (uc *IndexUseCase) embedUnits(ctx context.Context, units []*model.DocumentUnit) ([]*model.VectorRecord, int, error) {
	logger := logging.From(ctx)

	embeddings := make([][]float32, len(units))
	var mu sync.Mutex
	dropped := 0

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(uc.cfg.EmbedConcurrency)

	for i, unit := range units {
		eg.Go(func() error {
			vectors, err := uc.embedder.GenerateEmbedding(egCtx, model.EmbeddingDimension, []string{unit.Text})
			if err != nil {
				logger.Warn("Failed to embed document unit",
					slog.String("documentID", unit.DocumentID),
					slog.Any("error", err))
				mu.Lock()
				dropped++
				mu.Unlock()
				return nil
			}
			if len(vectors) != 1 || len(vectors[0]) != model.EmbeddingDimension {
				logger.Warn("Embedding has unexpected shape",
					slog.String("documentID", unit.DocumentID),
					slog.Int("count", len(vectors)))
				mu.Lock()
				dropped++
				mu.Unlock()
				return nil
			}

			vec := make([]float32, len(vectors[0]))
			for j, v := range vectors[0] {
				vec[j] = float32(v)
			}
			embeddings[i] = vec
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, 0, goerr.Wrap(err, "embedding workers failed")
	}

	records := make([]*model.VectorRecord, 0, len(units))
	for i, unit := range units {
		if embeddings[i] == nil {
			continue
		}
		records = append(records, model.NewVectorRecord(unit, embeddings[i]))
	}
	return records, dropped, nil
}

// upsertAndVerify writes one batch and confirms by read-back that every
// record is fetchable, retrying the whole batch on shortfall.
func (uc *IndexUseCase) upsertAndVerify(ctx context.Context, buildingID string, batch []*model.VectorRecord) (verified, failed int, err error) {
	ids := make([]model.RecordID, len(batch))
	for i, r := range batch {
		ids[i] = r.ID
	}

	missing := len(batch)
	policy := retry.Policy{MaxAttempts: uc.cfg.MaxRetries, Interval: uc.cfg.RetryInterval}

	retryErr := policy.Do(ctx, func(ctx context.Context) error {
		if err := uc.store.Upsert(ctx, buildingID, batch); err != nil {
			return goerr.Wrap(err, "failed to upsert batch", goerr.V("buildingID", buildingID))
		}

		if err := wait(ctx, uc.cfg.SettleDelay); err != nil {
			return err
		}

		fetched, err := uc.store.Fetch(ctx, buildingID, ids)
		if err != nil {
			return goerr.Wrap(err, "failed to verify batch", goerr.V("buildingID", buildingID))
		}

		missing = 0
		for _, id := range ids {
			if _, ok := fetched[id]; !ok {
				missing++
			}
		}
		if missing > 0 {
			return goerr.New("batch not fully verified",
				goerr.V("buildingID", buildingID),
				goerr.V("missing", missing))
		}
		return nil
	})

	if retryErr != nil && ctx.Err() != nil {
		return 0, 0, goerr.Wrap(retryErr, "index build canceled")
	}
	if retryErr != nil {
		logging.From(ctx).Warn("Batch verification exhausted retries",
			slog.String("buildingID", buildingID),
			slog.Int("missing", missing))
	}

	return len(batch) - missing, missing, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "canceled while waiting")
	case <-time.After(d):
		return nil
	}
}

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/domain/types"
	"github.com/contech-ims/binsight/pkg/repository/memory"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func readyStore(t *testing.T, buildingID string, texts ...string) *memory.Store {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	gt.NoError(t, store.CreateCollection(ctx, buildingID, model.EmbeddingDimension)).Required()

	embedder := newFakeEmbedder()
	records := make([]*model.VectorRecord, 0, len(texts))
	for i, text := range texts {
		vectors, err := embedder.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{text})
		gt.NoError(t, err).Required()

		vec := make([]float32, len(vectors[0]))
		for j, v := range vectors[0] {
			vec[j] = float32(v)
		}
		unit := validUnit(buildingID, "CO-00"+string(rune('1'+i)), text)
		records = append(records, model.NewVectorRecord(unit, vec))
	}
	gt.NoError(t, store.Upsert(ctx, buildingID, records)).Required()
	gt.NoError(t, store.PutStatus(ctx, &model.IndexStatus{
		BuildingID:    buildingID,
		State:         types.IndexStateReady,
		VerifiedCount: len(records),
	})).Required()

	return store
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	embedder := newFakeEmbedder()
	chat := &scriptedChat{}
	uc := usecase.NewQueryUseCase(memory.New(), embedder, chat, 5, nil)

	_, err := uc.Answer(context.Background(), "   ", "1001620")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, usecase.ErrEmptyQuestion)).True()

	// Rejected before any upstream call.
	gt.Number(t, embedder.callCount()).Equal(0)
	gt.Number(t, chat.callCount()).Equal(0)
}

func TestAnswerGroundedIncludesContext(t *testing.T) {
	store := readyStore(t, "1001620",
		"Occupancy permitted for offices on floors one through five.",
		"Residential occupancy approved for upper floors.")
	chat := &scriptedChat{answer: "The building permits office use."}
	uc := usecase.NewQueryUseCase(store, newFakeEmbedder(), chat, 5, nil)

	exchange, err := uc.Answer(context.Background(), "What uses are permitted?", "1001620")
	gt.NoError(t, err).Required()
	gt.Bool(t, exchange.Grounded).True()
	gt.Value(t, exchange.Answer).Equal("The building permits office use.")
	gt.Array(t, exchange.Snippets).Length(2)

	prompt := chat.lastSystemPrompt()
	gt.String(t, prompt).Contains("Certificate of Occupancy")
	gt.String(t, prompt).Contains("Occupancy permitted for offices")
	gt.String(t, prompt).Contains("100 Gold Street")
}

func TestAnswerSnippetOrderPreservedInPrompt(t *testing.T) {
	store := readyStore(t, "1001620",
		"First indexed certificate text for ordering check.",
		"Second indexed certificate text for ordering check.")
	chat := &scriptedChat{}
	uc := usecase.NewQueryUseCase(store, newFakeEmbedder(), chat, 5, nil)

	exchange, err := uc.Answer(context.Background(), "ordering?", "1001620")
	gt.NoError(t, err).Required()
	gt.Array(t, exchange.Snippets).Length(2).Required()
	gt.Bool(t, exchange.Snippets[0].Score >= exchange.Snippets[1].Score).True()

	prompt := chat.lastSystemPrompt()
	first := strings.Index(prompt, exchange.Snippets[0].Text)
	second := strings.Index(prompt, exchange.Snippets[1].Text)
	gt.Bool(t, first >= 0 && second >= 0).True()
	gt.Bool(t, first < second).True()
}

func TestAnswerMissingIndexFallsBackUngrounded(t *testing.T) {
	store := &countingStore{VectorStore: memory.New()}
	chat := &scriptedChat{answer: "General knowledge answer."}
	uc := usecase.NewQueryUseCase(store, newFakeEmbedder(), chat, 5, nil)

	exchange, err := uc.Answer(context.Background(), "What is this building?", "9999999")
	gt.NoError(t, err).Required()
	gt.Bool(t, exchange.Grounded).False()
	gt.Value(t, exchange.Answer).Equal("General knowledge answer.")
	gt.Array(t, exchange.Snippets).Length(0)

	// The vector store is never queried without a ready index.
	gt.Number(t, store.queryCount()).Equal(0)
	gt.String(t, chat.lastSystemPrompt()).Contains("No indexed CO documents")
}

func TestAnswerFailedIndexFallsBackUngrounded(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{VectorStore: memory.New()}
	gt.NoError(t, store.CreateCollection(ctx, "1001620", model.EmbeddingDimension)).Required()
	gt.NoError(t, store.PutStatus(ctx, &model.IndexStatus{
		BuildingID: "1001620",
		State:      types.IndexStateFailed,
	})).Required()

	chat := &scriptedChat{}
	uc := usecase.NewQueryUseCase(store, newFakeEmbedder(), chat, 5, nil)

	exchange, err := uc.Answer(ctx, "anything?", "1001620")
	gt.NoError(t, err).Required()
	gt.Bool(t, exchange.Grounded).False()
	gt.Number(t, store.queryCount()).Equal(0)
}

func TestAnswerWithoutBuildingIsUngrounded(t *testing.T) {
	embedder := newFakeEmbedder()
	chat := &scriptedChat{}
	uc := usecase.NewQueryUseCase(memory.New(), embedder, chat, 5, nil)

	exchange, err := uc.Answer(context.Background(), "What is a certificate of occupancy?", "")
	gt.NoError(t, err).Required()
	gt.Bool(t, exchange.Grounded).False()
	gt.Number(t, embedder.callCount()).Equal(0)
}

func TestAnswerEmbeddingFailureIsQueryFailed(t *testing.T) {
	embedder := newFakeEmbedder()
	embedder.failTexts["broken question"] = true
	chat := &scriptedChat{}
	uc := usecase.NewQueryUseCase(memory.New(), embedder, chat, 5, nil)

	_, err := uc.Answer(context.Background(), "broken question", "1001620")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, usecase.ErrQueryFailed)).True()
	gt.Number(t, chat.callCount()).Equal(0)
}

func TestAnswerCompletionFailureIsQueryFailed(t *testing.T) {
	chat := &scriptedChat{generateErr: goerr.New("provider down")}
	uc := usecase.NewQueryUseCase(memory.New(), newFakeEmbedder(), chat, 5, nil)

	_, err := uc.Answer(context.Background(), "any question", "")
	gt.Error(t, err)
	gt.Bool(t, errors.Is(err, usecase.ErrQueryFailed)).True()
}

func TestAnswerStreamForwardsFragmentsInOrder(t *testing.T) {
	chat := &scriptedChat{fragments: []string{"The ", "building ", "permits ", "offices."}}
	uc := usecase.NewQueryUseCase(memory.New(), newFakeEmbedder(), chat, 5, nil)

	exchange, stream, err := uc.AnswerStream(context.Background(), "What uses?", "")
	gt.NoError(t, err).Required()
	gt.Bool(t, exchange.Grounded).False()

	var got []string
	for fragment := range stream {
		got = append(got, fragment)
	}
	gt.Array(t, got).Equal([]string{"The ", "building ", "permits ", "offices."})
}

func TestAnswerAppliesPromptRules(t *testing.T) {
	chat := &scriptedChat{}
	uc := usecase.NewQueryUseCase(memory.New(), newFakeEmbedder(), chat, 5,
		[]string{"Always answer in English."})

	_, err := uc.Answer(context.Background(), "any question", "")
	gt.NoError(t, err).Required()
	gt.String(t, chat.lastSystemPrompt()).Contains("Always answer in English.")
}

package usecase

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/domain/types"
	"github.com/contech-ims/binsight/pkg/repository/firestore"
	"github.com/contech-ims/binsight/pkg/repository/memory"
	"github.com/contech-ims/binsight/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed prompt/chat_system.md
var chatSystemPrompt string

const ungroundedPreamble = `No indexed CO documents are available for this building. Answer from your general knowledge of NYC Certificates of Occupancy, state clearly that no building-specific documents were found, and do not fabricate document contents or citations.`

// QueryUseCase answers questions about a building, grounded in its
// indexed CO documents when an index is ready.
type QueryUseCase struct {
	store       interfaces.VectorStore
	embedder    interfaces.EmbeddingClient
	chat        interfaces.ChatClient
	topK        int
	promptRules []string
}

func NewQueryUseCase(store interfaces.VectorStore, embedder interfaces.EmbeddingClient, chat interfaces.ChatClient, topK int, promptRules []string) *QueryUseCase {
	return &QueryUseCase{
		store:       store,
		embedder:    embedder,
		chat:        chat,
		topK:        topK,
		promptRules: promptRules,
	}
}

// Answer runs the full pipeline and returns the completed exchange.
func (uc *QueryUseCase) Answer(ctx context.Context, question, buildingID string) (*model.ChatExchange, error) {
	exchange, systemPrompt, err := uc.prepare(ctx, question, buildingID)
	if err != nil {
		return nil, err
	}

	answer, err := uc.chat.Generate(ctx, systemPrompt, question)
	if err != nil {
		return nil, goerr.Wrap(ErrQueryFailed, "completion failed",
			goerr.V("stage", "complete"), goerr.V("cause", err.Error()))
	}

	exchange.Answer = answer
	return exchange, nil
}

// AnswerStream runs the same pipeline but returns answer fragments as
// they arrive. The exchange carries the grounding info; its Answer
// field stays empty.
func (uc *QueryUseCase) AnswerStream(ctx context.Context, question, buildingID string) (*model.ChatExchange, <-chan string, error) {
	exchange, systemPrompt, err := uc.prepare(ctx, question, buildingID)
	if err != nil {
		return nil, nil, err
	}

	stream, err := uc.chat.GenerateStream(ctx, systemPrompt, question)
	if err != nil {
		return nil, nil, goerr.Wrap(ErrQueryFailed, "completion stream failed",
			goerr.V("stage", "complete"), goerr.V("cause", err.Error()))
	}

	return exchange, stream, nil
}

// prepare validates the question, embeds it, retrieves snippets when
// the building's index is ready, and assembles the system prompt.
func (uc *QueryUseCase) prepare(ctx context.Context, question, buildingID string) (*model.ChatExchange, string, error) {
	if strings.TrimSpace(question) == "" {
		return nil, "", ErrEmptyQuestion
	}

	exchange := &model.ChatExchange{
		Question:   question,
		BuildingID: buildingID,
	}

	if buildingID != "" {
		vectors, err := uc.embedder.GenerateEmbedding(ctx, model.EmbeddingDimension, []string{question})
		if err != nil {
			return nil, "", goerr.Wrap(ErrQueryFailed, "question embedding failed",
				goerr.V("stage", "embed"), goerr.V("cause", err.Error()))
		}
		if len(vectors) != 1 {
			return nil, "", goerr.Wrap(ErrQueryFailed, "unexpected embedding count",
				goerr.V("stage", "embed"), goerr.V("count", len(vectors)))
		}

		embedding := make([]float32, len(vectors[0]))
		for i, v := range vectors[0] {
			embedding[i] = float32(v)
		}

		snippets, err := uc.retrieve(ctx, buildingID, embedding)
		if err != nil {
			return nil, "", err
		}
		exchange.Snippets = snippets
	}

	exchange.Grounded = len(exchange.Snippets) > 0
	return exchange, uc.systemPrompt(exchange), nil
}

// retrieve returns the top-K snippets for a ready index. A missing,
// building or failed index yields no snippets rather than an error, so
// the answer falls back to ungrounded mode.
func (uc *QueryUseCase) retrieve(ctx context.Context, buildingID string, embedding []float32) ([]*model.Snippet, error) {
	logger := logging.From(ctx)

	status, err := uc.store.GetStatus(ctx, buildingID)
	if err != nil {
		if isNotFound(err) {
			logger.Info("No index for building, answering ungrounded", slog.String("buildingID", buildingID))
			return nil, nil
		}
		return nil, goerr.Wrap(ErrQueryFailed, "index status lookup failed",
			goerr.V("stage", "retrieve"), goerr.V("cause", err.Error()))
	}
	if status.State != types.IndexStateReady {
		logger.Info("Index not ready, answering ungrounded",
			slog.String("buildingID", buildingID),
			slog.String("state", status.State.String()))
		return nil, nil
	}

	snippets, err := uc.store.Query(ctx, buildingID, embedding, uc.topK)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, goerr.Wrap(ErrQueryFailed, "vector search failed",
			goerr.V("stage", "retrieve"), goerr.V("cause", err.Error()))
	}
	return snippets, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, memory.ErrNotFound) || errors.Is(err, firestore.ErrNotFound)
}

// systemPrompt renders the CO-analysis role, any configured extra
// rules, and the retrieved context most relevant first.
func (uc *QueryUseCase) systemPrompt(exchange *model.ChatExchange) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(chatSystemPrompt))

	for _, rule := range uc.promptRules {
		sb.WriteString("\n")
		sb.WriteString(rule)
	}

	if !exchange.Grounded {
		sb.WriteString("\n\n")
		sb.WriteString(ungroundedPreamble)
		return sb.String()
	}

	sb.WriteString("\n\nContext from the building's indexed CO documents, most relevant first:\n")
	for i, s := range exchange.Snippets {
		fmt.Fprintf(&sb, "\n[%d] Address: %s | CO: %s | Source: %s | Relevance: %.3f\n%s\n",
			i+1, s.Address, s.DocumentID, s.SourceLink, s.Score, s.Text)
	}
	return sb.String()
}

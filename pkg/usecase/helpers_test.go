package usecase_test

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/contech-ims/binsight/pkg/domain/model"
	"github.com/contech-ims/binsight/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
)

// fakeEmbedder produces deterministic embeddings derived from the input
// text, so identical text always yields identical vectors.
type fakeEmbedder struct {
	mu        sync.Mutex
	calls     int
	failTexts map[string]bool
}

var _ interfaces.EmbeddingClient = &fakeEmbedder{}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{failTexts: make(map[string]bool)}
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	result := make([][]float64, len(input))
	for i, text := range input {
		if f.failTexts[text] {
			return nil, goerr.New("embedding provider rejected input")
		}

		h := fnv.New64a()
		_, _ = h.Write([]byte(text))
		seed := h.Sum64()

		vec := make([]float64, dimension)
		for j := range vec {
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[j] = float64(seed%1000)/1000.0 - 0.5
		}
		result[i] = vec
	}
	return result, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// scriptedChat returns a fixed answer and records the prompts it saw.
type scriptedChat struct {
	mu           sync.Mutex
	answer       string
	fragments    []string
	generateErr  error
	systemPrompt string
	userPrompt   string
	calls        int
}

var _ interfaces.ChatClient = &scriptedChat{}

func (c *scriptedChat) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.systemPrompt = systemPrompt
	c.userPrompt = userPrompt
	if c.generateErr != nil {
		return "", c.generateErr
	}
	if c.answer != "" {
		return c.answer, nil
	}
	return "scripted answer", nil
}

func (c *scriptedChat) GenerateStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, error) {
	c.mu.Lock()
	c.calls++
	c.systemPrompt = systemPrompt
	c.userPrompt = userPrompt
	err := c.generateErr
	fragments := c.fragments
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make(chan string, len(fragments))
	for _, f := range fragments {
		out <- f
	}
	close(out)
	return out, nil
}

func (c *scriptedChat) lastSystemPrompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.systemPrompt
}

func (c *scriptedChat) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// droppingStore wraps a VectorStore and hides records whose ID contains
// the given marker from Fetch, simulating an upsert that never becomes
// visible.
type droppingStore struct {
	interfaces.VectorStore
	marker string
}

func (s *droppingStore) Fetch(ctx context.Context, buildingID string, ids []model.RecordID) (map[model.RecordID]*model.VectorRecord, error) {
	fetched, err := s.VectorStore.Fetch(ctx, buildingID, ids)
	if err != nil {
		return nil, err
	}
	for id := range fetched {
		if strings.Contains(string(id), s.marker) {
			delete(fetched, id)
		}
	}
	return fetched, nil
}

// countingStore wraps a VectorStore and counts Query calls.
type countingStore struct {
	interfaces.VectorStore
	mu         sync.Mutex
	queryCalls int
}

func (s *countingStore) Query(ctx context.Context, buildingID string, embedding []float32, topK int) ([]*model.Snippet, error) {
	s.mu.Lock()
	s.queryCalls++
	s.mu.Unlock()
	return s.VectorStore.Query(ctx, buildingID, embedding, topK)
}

func (s *countingStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryCalls
}

func validUnit(buildingID, documentID, text string) *model.DocumentUnit {
	return &model.DocumentUnit{
		BuildingID: buildingID,
		DocumentID: documentID,
		SourceLink: "https://example.com/" + documentID + ".pdf",
		Address:    "100 Gold Street",
		Text:       text,
	}
}

func testIndexConfig() usecase.IndexConfig {
	return usecase.IndexConfig{
		BatchSize:        2,
		SettleDelay:      0,
		MaxRetries:       3,
		RetryInterval:    0,
		EmbedConcurrency: 2,
	}
}

package interfaces

import "context"

// EmbeddingClient produces fixed-dimension embedding vectors for texts.
// gollem.LLMClient satisfies this interface; tests inject deterministic
// fakes. Query and document embeddings must come from the same model, or
// similarity scores are meaningless.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

// ChatClient generates a completion for a system prompt and user message,
// either buffered or as a stream of text fragments.
type ChatClient interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// GenerateStream returns fragments in arrival order. The channel is
	// closed when the upstream response ends; cancelling ctx stops the
	// stream early.
	GenerateStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, error)
}

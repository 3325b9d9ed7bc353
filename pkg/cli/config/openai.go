package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/openai"
	"github.com/urfave/cli/v3"
)

// OpenAI holds configuration for the OpenAI LLM client
type OpenAI struct {
	apiKey         string
	model          string
	embeddingModel string
	temperature    float64
	maxTokens      int64
}

// Flags returns CLI flags for OpenAI configuration
func (o *OpenAI) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key (required)",
			Sources:     cli.EnvVars("BINSIGHT_OPENAI_API_KEY", "OPENAI_API_KEY"),
			Destination: &o.apiKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI chat completion model",
			Value:       "gpt-4",
			Sources:     cli.EnvVars("BINSIGHT_OPENAI_MODEL"),
			Destination: &o.model,
		},
		&cli.StringFlag{
			Name:        "openai-embedding-model",
			Usage:       "OpenAI embedding model",
			Value:       "text-embedding-3-small",
			Sources:     cli.EnvVars("BINSIGHT_OPENAI_EMBEDDING_MODEL"),
			Destination: &o.embeddingModel,
		},
		&cli.FloatFlag{
			Name:        "openai-temperature",
			Usage:       "Sampling temperature for chat completion",
			Value:       0.3,
			Sources:     cli.EnvVars("BINSIGHT_OPENAI_TEMPERATURE"),
			Destination: &o.temperature,
		},
		&cli.Int64Flag{
			Name:        "openai-max-tokens",
			Usage:       "Completion token ceiling",
			Value:       4096,
			Sources:     cli.EnvVars("BINSIGHT_OPENAI_MAX_TOKENS"),
			Destination: &o.maxTokens,
		},
	}
}

// LogAttrs returns log attributes for the OpenAI configuration
func (o *OpenAI) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.Bool("api_key_set", o.apiKey != ""),
		slog.String("model", o.model),
		slog.String("embedding_model", o.embeddingModel),
		slog.Float64("temperature", o.temperature),
		slog.Int64("max_tokens", o.maxTokens),
	}
}

// Configure creates an OpenAI-backed gollem client from the flags.
func (o *OpenAI) Configure(ctx context.Context) (gollem.LLMClient, error) {
	return o.configure(ctx, o.maxTokens)
}

// ConfigureWithMaxTokens creates a client with a different completion
// ceiling, for operations like summarization that want short outputs.
func (o *OpenAI) ConfigureWithMaxTokens(ctx context.Context, maxTokens int64) (gollem.LLMClient, error) {
	return o.configure(ctx, maxTokens)
}

func (o *OpenAI) configure(ctx context.Context, maxTokens int64) (gollem.LLMClient, error) {
	if o.apiKey == "" {
		return nil, goerr.Wrap(ErrMissingAPIKey, "set --openai-api-key or OPENAI_API_KEY")
	}

	client, err := openai.New(ctx, o.apiKey,
		openai.WithModel(o.model),
		openai.WithEmbeddingModel(o.embeddingModel),
		openai.WithTemperature(float32(o.temperature)),
		openai.WithMaxTokens(int(maxTokens)),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create OpenAI client")
	}
	return client, nil
}

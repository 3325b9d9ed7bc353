package usecase

import (
	"time"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
)

// IndexConfig tunes the index builder's batching and verification loop.
type IndexConfig struct {
	BatchSize        int
	SettleDelay      time.Duration
	MaxRetries       uint
	RetryInterval    time.Duration
	EmbedConcurrency int
}

func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		BatchSize:        50,
		SettleDelay:      10 * time.Second,
		MaxRetries:       5,
		RetryInterval:    5 * time.Second,
		EmbedConcurrency: 4,
	}
}

// UseCases bundles the application operations over a vector store and
// the LLM clients.
type UseCases struct {
	Index     *IndexUseCase
	Query     *QueryUseCase
	Summarize *SummarizeUseCase
}

type Option func(*options)

type options struct {
	indexConfig IndexConfig
	topK        int
	promptRules []string
}

// WithIndexConfig overrides the index builder defaults.
func WithIndexConfig(cfg IndexConfig) Option {
	return func(o *options) {
		o.indexConfig = cfg
	}
}

// WithTopK sets how many snippets the query answerer retrieves.
func WithTopK(topK int) Option {
	return func(o *options) {
		o.topK = topK
	}
}

// WithPromptRules appends extra rules to the chat system prompt.
func WithPromptRules(rules []string) Option {
	return func(o *options) {
		o.promptRules = rules
	}
}

func New(store interfaces.VectorStore, embedder interfaces.EmbeddingClient, chat interfaces.ChatClient, opts ...Option) *UseCases {
	o := &options{
		indexConfig: DefaultIndexConfig(),
		topK:        5,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &UseCases{
		Index:     NewIndexUseCase(store, embedder, o.indexConfig),
		Query:     NewQueryUseCase(store, embedder, chat, o.topK, o.promptRules),
		Summarize: NewSummarizeUseCase(chat),
	}
}

package llm

import (
	"context"
	"strings"

	"github.com/contech-ims/binsight/pkg/domain/interfaces"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
)

// Client adapts a gollem.LLMClient to the chat interface used by the
// query answerer and the summarizer. Each call opens a fresh session so
// no conversation state leaks between requests.
type Client struct {
	llm gollem.LLMClient
}

var _ interfaces.ChatClient = &Client{}

func New(llm gollem.LLMClient) *Client {
	return &Client{llm: llm}
}

func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	session, err := c.llm.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create LLM session")
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content")
	}

	if len(resp.Texts) == 0 {
		return "", goerr.New("LLM returned empty response")
	}

	return strings.Join(resp.Texts, "\n"), nil
}

func (c *Client) GenerateStream(ctx context.Context, systemPrompt, userPrompt string) (<-chan string, error) {
	session, err := c.llm.NewSession(ctx,
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create LLM session")
	}

	stream, err := session.GenerateStream(ctx, gollem.Text(userPrompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to start content stream")
	}

	out := make(chan string)
	go func() {
		defer close(out)
		for resp := range stream {
			if resp == nil {
				continue
			}
			for _, text := range resp.Texts {
				if text == "" {
					continue
				}
				select {
				case out <- text:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

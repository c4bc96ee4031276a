// Package openai implements the understanding-backend chat client against
// any OpenAI-compatible completion API.
package openai

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fairyhunter13/ai-interview-screener/internal/config"
)

// Client performs chat-completion round trips. It satisfies ai.ChatClient.
type Client struct {
	api   *openai.Client
	model string
}

// New constructs a Client from configuration. The HTTP transport is wrapped
// with otelhttp so backend calls show up in traces.
func New(cfg config.Config) *Client {
	c := openai.DefaultConfig(cfg.OpenAIAPIKey)
	c.BaseURL = cfg.OpenAIBaseURL
	c.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return &Client{api: openai.NewClientWithConfig(c), model: cfg.ChatModel}
}

// Complete sends one system+user exchange and returns the raw assistant text.
// The caller owns deadlines via ctx; no retries happen here.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("op=openai.complete: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("op=openai.complete: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

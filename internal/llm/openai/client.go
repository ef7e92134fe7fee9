// Package openai plans scenes against any OpenAI-compatible chat-completion
// endpoint. Point BaseURL at another vendor (DeepSeek, a local gateway) to
// reuse it.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"storyboard/internal/llm"
	"storyboard/internal/scene"
	"storyboard/pkg/prompts"
)

const defaultModel = openai.GPT4oMini

var _ llm.Planner = (*Client)(nil)

type Client struct {
	client  *openai.Client
	model   string
	prompts *prompts.Prompts
}

type Options struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string, p *prompts.Prompts, opts Options) *Client {
	config := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		prompts: p,
	}
}

func NewFactory(p *prompts.Prompts, opts Options) llm.Factory {
	return func(_ context.Context, apiKey string) (llm.Planner, error) {
		return NewClient(apiKey, p, opts), nil
	}
}

func (c *Client) PlanScenes(ctx context.Context, script string) (*scene.Set, error) {
	prompt, err := c.prompts.RenderStoryboard(prompts.ScriptParams{Script: script})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompts.System.Storyboard},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, llm.ErrNoResponse
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return nil, llm.ErrEmptyResponse
	}

	slog.Debug("LLM scenes raw response", "provider", "openai", "model", c.model, "content", content)

	return scene.Parse(content)
}

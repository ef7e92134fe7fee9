package groq

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/conneroisu/groq-go"

	"storyboard/internal/llm"
	"storyboard/internal/scene"
	"storyboard/pkg/prompts"
)

const defaultModel = "llama-3.3-70b-versatile"

var _ llm.Planner = (*Client)(nil)

type Client struct {
	client  *groq.Client
	model   groq.ChatModel
	prompts *prompts.Prompts
}

type Options struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string, p *prompts.Prompts, opts Options) (*Client, error) {
	var clientOpts []groq.Opts
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, groq.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, groq.WithClient(opts.HTTPClient))
	}

	client, err := groq.NewClient(apiKey, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create groq client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:  client,
		model:   groq.ChatModel(model),
		prompts: p,
	}, nil
}

// NewFactory returns an llm.Factory building Groq planners with opts.
func NewFactory(p *prompts.Prompts, opts Options) llm.Factory {
	return func(_ context.Context, apiKey string) (llm.Planner, error) {
		return NewClient(apiKey, p, opts)
	}
}

func (c *Client) PlanScenes(ctx context.Context, script string) (*scene.Set, error) {
	prompt, err := c.prompts.RenderStoryboard(prompts.ScriptParams{Script: script})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := c.generateJSONContent(ctx, c.prompts.System.Storyboard, prompt)
	if err != nil {
		return nil, err
	}

	slog.Debug("LLM scenes raw response", "provider", "groq", "content", content)

	return scene.Parse(content)
}

func (c *Client) generateJSONContent(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.client.ChatCompletion(ctx, groq.ChatCompletionRequest{
		Model: c.model,
		Messages: []groq.ChatCompletionMessage{
			{Role: groq.RoleSystem, Content: systemPrompt},
			{Role: groq.RoleUser, Content: userPrompt},
		},
		ResponseFormat: &groq.ChatResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", llm.ErrNoResponse
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", llm.ErrEmptyResponse
	}

	return content, nil
}

package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/genai"

	"storyboard/internal/llm"
	"storyboard/internal/scene"
	"storyboard/pkg/prompts"
)

const defaultModel = "gemini-1.5-flash"

var _ llm.Planner = (*Client)(nil)

type Client struct {
	client  *genai.Client
	model   string
	prompts *prompts.Prompts
}

type Options struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

var sceneSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"scene_number":       {Type: genai.TypeInteger, Description: "1-based position of the scene"},
		"timestamp":          {Type: genai.TypeString, Description: "Time range such as 00:00-00:04"},
		"script_line":        {Type: genai.TypeString, Description: "Exact line from the script"},
		"visual_description": {Type: genai.TypeString, Description: "Director's notes on the visual"},
		"image_prompt":       {Type: genai.TypeString, Description: "Cinematic image generation prompt"},
	},
	Required: []string{"scene_number", "timestamp", "image_prompt"},
}

var storyboardSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"scenes": {Type: genai.TypeArray, Items: sceneSchema},
	},
	Required: []string{"scenes"},
}

func NewClient(ctx context.Context, apiKey string, p *prompts.Prompts, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{
		client:  client,
		model:   model,
		prompts: p,
	}, nil
}

// NewFactory returns an llm.Factory building Gemini planners with opts.
func NewFactory(p *prompts.Prompts, opts Options) llm.Factory {
	return func(ctx context.Context, apiKey string) (llm.Planner, error) {
		return NewClient(ctx, apiKey, p, opts)
	}
}

func (c *Client) PlanScenes(ctx context.Context, script string) (*scene.Set, error) {
	prompt, err := c.prompts.RenderStoryboard(prompts.ScriptParams{Script: script})
	if err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	content, err := c.generateJSON(ctx, c.prompts.System.Storyboard, prompt, storyboardSchema)
	if err != nil {
		return nil, err
	}

	slog.Debug("LLM scenes raw response", "provider", "gemini", "content", content)

	return scene.Parse(content)
}

func (c *Client) generateJSON(ctx context.Context, systemPrompt, userPrompt string, schema *genai.Schema) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(userPrompt), config)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", llm.ErrNoResponse
	}

	if resp.Candidates[0].Content.Parts[0].Text == "" {
		return "", llm.ErrEmptyResponse
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}

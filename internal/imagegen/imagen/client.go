package imagen

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"storyboard/internal/imagegen"
)

const defaultModel = "imagen-3.0-generate-001"

var _ imagegen.Renderer = (*Client)(nil)

type Client struct {
	client *genai.Client
	model  string
}

type Options struct {
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: opts.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create imagen client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = defaultModel
	}

	return &Client{client: client, model: model}, nil
}

func NewFactory(opts Options) imagegen.Factory {
	return func(ctx context.Context, apiKey string) (imagegen.Renderer, error) {
		return NewClient(ctx, apiKey, opts)
	}
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (*imagegen.Image, error) {
	resp, err := c.client.Models.GenerateImages(ctx, c.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, imagegen.ErrNoImage
	}

	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		if reason := resp.GeneratedImages[0].RAIFilteredReason; reason != "" {
			return nil, fmt.Errorf("%w: filtered: %s", imagegen.ErrNoImage, reason)
		}
		return nil, imagegen.ErrNoImage
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = "image/png"
	}

	return &imagegen.Image{Data: img.ImageBytes, MIMEType: mimeType}, nil
}

package dalle

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"storyboard/internal/imagegen"
)

const (
	defaultModel = openai.CreateImageModelDallE3
	defaultSize  = openai.CreateImageSize1024x1024
)

var _ imagegen.Renderer = (*Client)(nil)

type Client struct {
	client *openai.Client
	model  string
	size   string
}

type Options struct {
	Model      string
	Size       string
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(apiKey string, opts Options) *Client {
	config := openai.DefaultConfig(apiKey)
	if opts.BaseURL != "" {
		config.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		config.HTTPClient = opts.HTTPClient
	}

	c := &Client{
		client: openai.NewClientWithConfig(config),
		model:  opts.Model,
		size:   opts.Size,
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.size == "" {
		c.size = defaultSize
	}
	return c
}

func NewFactory(opts Options) imagegen.Factory {
	return func(_ context.Context, apiKey string) (imagegen.Renderer, error) {
		return NewClient(apiKey, opts), nil
	}
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (*imagegen.Image, error) {
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          c.model,
		N:              1,
		Size:           c.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("generate image: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, imagegen.ErrNoImage
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return &imagegen.Image{Data: data, MIMEType: "image/png"}, nil
}

package imagegen

import (
	"context"
	"errors"
)

var ErrNoImage = errors.New("no image returned")

// Image is one rendered frame. It lives only in the display state of the
// scene it was generated for.
type Image struct {
	Data     []byte
	MIMEType string
}

// Ext returns the file extension matching the image MIME type.
func (i *Image) Ext() string {
	switch i.MIMEType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

// Renderer generates exactly one image per call.
type Renderer interface {
	GenerateImage(ctx context.Context, prompt string) (*Image, error)
}

// Factory builds a renderer authorized with apiKey.
type Factory func(ctx context.Context, apiKey string) (Renderer, error)

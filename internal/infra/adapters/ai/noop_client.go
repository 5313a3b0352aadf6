package ai

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"

	"pinterest-ai-studio/internal/domain/ports/adapter"
)

var _ adapter.StageClient = (*NoopClient)(nil)

// NoopClient is the dev-mode stage client: deterministic output, no network.
type NoopClient struct{}

func NewNoopClient() *NoopClient { return &NoopClient{} }

func (n *NoopClient) DescribeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	return "a placeholder description of the source image", nil
}

func (n *NoopClient) GenerateContent(ctx context.Context, prompt string) (adapter.PinContent, string, error) {
	c := adapter.PinContent{
		Title:       "Placeholder Pin",
		Description: "Placeholder description generated in dev mode.",
		Keywords:    []string{"placeholder", "dev"},
	}
	return c, `{"title":"Placeholder Pin"}`, nil
}

func (n *NoopClient) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	if width <= 0 {
		width = 64
	}
	if height <= 0 {
		height = 64
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: 200, G: 120, B: 160, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *NoopClient) GenerateAltText(ctx context.Context, prompt string) (string, error) {
	return "placeholder alt text", nil
}

package ai

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"pinterest-ai-studio/internal/domain/ports/adapter"
)

var _ adapter.StageClient = (*GeminiClient)(nil)

// GeminiClient implements adapter.StageClient using the official SDK.
// Text stages run through the configured chat model; image generation uses
// an Imagen model.
type GeminiClient struct {
	client     *genai.Client
	model      string
	imageModel string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:     c,
		model:      model,
		imageModel: "imagen-3.0-generate-002",
	}, nil
}

func (g *GeminiClient) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

func (g *GeminiClient) DescribeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, "image/png"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	return g.generate(ctx, contents)
}

func (g *GeminiClient) GenerateContent(ctx context.Context, prompt string) (adapter.PinContent, string, error) {
	full := "You write Pinterest pin content. Respond ONLY with a JSON object: " +
		`{"title": string, "description": string, "keywords": [string]}. No markdown fences.` +
		"\n\n" + prompt
	raw, err := g.generate(ctx, genai.Text(full))
	if err != nil {
		return adapter.PinContent{}, "", err
	}
	content, err := parsePinContent(raw)
	if err != nil {
		return adapter.PinContent{}, raw, err
	}
	return content, raw, nil
}

func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	cfg := &genai.GenerateImagesConfig{
		AspectRatio: nearestAspectRatio(width, height),
	}
	resp, err := g.client.Models.GenerateImages(ctx, g.imageModel, prompt, cfg)
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, errors.New("gemini: no image generated")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

func (g *GeminiClient) GenerateAltText(ctx context.Context, prompt string) (string, error) {
	full := "You write concise image alt text for accessibility. Respond with the alt text only, under 250 characters.\n\n" + prompt
	return g.generate(ctx, genai.Text(full))
}

// nearestAspectRatio snaps pin dimensions onto a supported Imagen ratio.
func nearestAspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return "1:1"
	}
	r := float64(width) / float64(height)
	switch {
	case r < 0.65:
		return "9:16"
	case r < 0.9:
		return "3:4"
	case r <= 1.15:
		return "1:1"
	case r <= 1.55:
		return "4:3"
	default:
		return "16:9"
	}
}

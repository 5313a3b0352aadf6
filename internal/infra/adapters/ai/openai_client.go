package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/infra/metrics"
)

// Compile-time assurance this client satisfies the port
var _ adapter.StageClient = (*OpenAIClient)(nil)

// OpenAIClient implements adapter.StageClient against the Chat Completions
// and Images APIs.
type OpenAIClient struct {
	apiKey string
	base   string // e.g. https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIClient(apiKey, model string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIClient{
		apiKey: apiKey,
		base:   "https://api.openai.com/v1",
		model:  model,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

func (o *OpenAIClient) chat(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := struct {
		Model    string        `json:"model"`
		Messages []chatMessage `json:"messages"`
	}{Model: o.model, Messages: messages}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("openai http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}

func (o *OpenAIClient) DescribeImage(ctx context.Context, prompt string, image []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)
	img := &struct {
		URL string `json:"url"`
	}{URL: dataURL}
	msg := chatMessage{
		Role: "user",
		Content: []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: img},
		},
	}
	return o.chat(ctx, []chatMessage{msg})
}

func (o *OpenAIClient) GenerateContent(ctx context.Context, prompt string) (adapter.PinContent, string, error) {
	metrics.AddStageTokens("content", "openai", o.model, estimateTokens(o.model, prompt))

	sys := chatMessage{
		Role: "system",
		Content: "You write Pinterest pin content. Respond ONLY with a JSON object: " +
			`{"title": string, "description": string, "keywords": [string]}. No markdown fences.`,
	}
	raw, err := o.chat(ctx, []chatMessage{sys, {Role: "user", Content: prompt}})
	if err != nil {
		return adapter.PinContent{}, "", err
	}
	content, err := parsePinContent(raw)
	if err != nil {
		return adapter.PinContent{}, raw, err
	}
	return content, raw, nil
}

func (o *OpenAIClient) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	reqBody := struct {
		Model          string `json:"model"`
		Prompt         string `json:"prompt"`
		N              int    `json:"n"`
		Size           string `json:"size"`
		ResponseFormat string `json:"response_format"`
	}{
		Model:          imageModelFor(o.model),
		Prompt:         prompt,
		N:              1,
		Size:           nearestOpenAISize(width, height),
		ResponseFormat: "b64_json",
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/images/generations", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("openai images http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Data) == 0 || payload.Data[0].B64JSON == "" {
		return nil, errors.New("no image data")
	}
	return base64.StdEncoding.DecodeString(payload.Data[0].B64JSON)
}

func (o *OpenAIClient) GenerateAltText(ctx context.Context, prompt string) (string, error) {
	sys := chatMessage{
		Role:    "system",
		Content: "You write concise image alt text for accessibility. Respond with the alt text only, under 250 characters.",
	}
	return o.chat(ctx, []chatMessage{sys, {Role: "user", Content: prompt}})
}

// imageModelFor maps a chat model selection to an image model; users who set
// an image-capable model on the credential keep it.
func imageModelFor(model string) string {
	if strings.Contains(model, "dall-e") || strings.Contains(model, "image") {
		return model
	}
	return "dall-e-3"
}

// nearestOpenAISize snaps arbitrary pin dimensions onto a supported size.
func nearestOpenAISize(width, height int) string {
	switch {
	case width <= 0 || height <= 0 || width == height:
		return "1024x1024"
	case height > width:
		return "1024x1792"
	default:
		return "1792x1024"
	}
}

// estimateTokens is best-effort; unknown models fall back to cl100k_base.
func estimateTokens(model, text string) int {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}
	return len(enc.Encode(text, nil, nil))
}

// parsePinContent tolerates markdown fences around the JSON object.
func parsePinContent(raw string) (adapter.PinContent, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var c adapter.PinContent
	if err := json.Unmarshal([]byte(s), &c); err != nil {
		return adapter.PinContent{}, fmt.Errorf("parse content response: %w", err)
	}
	if c.Title == "" {
		return adapter.PinContent{}, errors.New("content response missing title")
	}
	return c, nil
}

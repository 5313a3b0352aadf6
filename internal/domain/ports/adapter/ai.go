package adapter

import (
	"context"

	"pinterest-ai-studio/internal/domain/model"
)

// Credential is a resolved provider credential: the decrypted secret plus
// the model to use. It never leaves the process.
type Credential struct {
	Provider model.ProviderType
	Secret   string
	Model    string
}

// PinContent is the structured output of the content-generation stage.
type PinContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// StageClient is the port for the four per-row pipeline capabilities.
// Implementations are provider-specific; the returned strings are the raw
// provider output, recorded verbatim in stage logs.
type StageClient interface {
	// DescribeImage produces a textual description of the source image.
	DescribeImage(ctx context.Context, prompt string, image []byte) (string, error)

	// GenerateContent produces title/description/keywords from a prompt.
	// The second return value is the raw provider response for audit.
	GenerateContent(ctx context.Context, prompt string) (PinContent, string, error)

	// GenerateImage produces a base image at the requested dimensions.
	GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error)

	// GenerateAltText produces accessibility text for the final artifact.
	GenerateAltText(ctx context.Context, prompt string) (string, error)
}

// StageClientFactory builds a StageClient for a resolved credential.
type StageClientFactory interface {
	ForCredential(ctx context.Context, cred Credential) (StageClient, error)
}

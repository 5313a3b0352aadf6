package model

import (
	"time"

	"pinterest-ai-studio/internal/domain"

	"github.com/google/uuid"
)

type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

func (p ProviderType) Valid() bool {
	return p == ProviderOpenAI || p == ProviderGemini
}

// APIKey is a stored credential for a third-party LLM/image provider.
// The secret is encrypted at rest; only the resolver ever sees plaintext.
type APIKey struct {
	ID              string
	UserID          string
	Name            string
	Provider        ProviderType
	SecretEncrypted string
	ModelName       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewAPIKey(userID, name string, provider ProviderType, secretEncrypted, modelName string) (*APIKey, error) {
	if userID == "" || name == "" || secretEncrypted == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !provider.Valid() {
		return nil, domain.ErrUnsupportedProvider
	}
	now := time.Now()
	return &APIKey{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            name,
		Provider:        provider,
		SecretEncrypted: secretEncrypted,
		ModelName:       modelName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

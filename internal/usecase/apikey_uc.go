package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/logging"
	"pinterest-ai-studio/internal/infra/security"
)

// APIKeyUseCase manages stored provider credentials. Secrets are encrypted
// before they touch the repository and only decrypted by Resolve.
type APIKeyUseCase interface {
	Create(ctx context.Context, userID, name string, provider model.ProviderType, secret, modelName string) (*model.APIKey, error)
	List(ctx context.Context, userID string) ([]*model.APIKey, error)
	Delete(ctx context.Context, id, userID string) error

	// Resolve decrypts the key into a usable credential. A key owned by
	// another user is NotFound, never PermissionDenied, so existence does
	// not leak.
	Resolve(ctx context.Context, id, userID string) (adapter.Credential, error)
}

var _ APIKeyUseCase = (*apiKeyUseCase)(nil)

type apiKeyUseCase struct {
	keys repository.APIKeyRepository
	enc  *security.EncryptionService
	log  *zerolog.Logger
}

func NewAPIKeyUseCase(keys repository.APIKeyRepository, enc *security.EncryptionService, logger *zerolog.Logger) *apiKeyUseCase {
	l := logger.With().Str("component", "APIKeyUC").Logger()
	return &apiKeyUseCase{keys: keys, enc: enc, log: &l}
}

func (a *apiKeyUseCase) Create(ctx context.Context, userID, name string, provider model.ProviderType, secret, modelName string) (*model.APIKey, error) {
	defer logging.TraceDuration(a.log, "APIKeyUC.Create")()

	encrypted, err := a.enc.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("encrypt secret: %w", err)
	}
	key, err := model.NewAPIKey(userID, name, provider, encrypted, modelName)
	if err != nil {
		return nil, err
	}
	if err := a.keys.Save(ctx, nil, key); err != nil {
		return nil, err
	}
	a.log.Info().Str("key_id", key.ID).Str("provider", string(provider)).Msg("api key stored")
	return key, nil
}

func (a *apiKeyUseCase) List(ctx context.Context, userID string) ([]*model.APIKey, error) {
	return a.keys.ListByUser(ctx, nil, userID)
}

func (a *apiKeyUseCase) Delete(ctx context.Context, id, userID string) error {
	return a.keys.Delete(ctx, nil, id, userID)
}

func (a *apiKeyUseCase) Resolve(ctx context.Context, id, userID string) (adapter.Credential, error) {
	key, err := a.keys.FindByID(ctx, nil, id, userID)
	if err != nil {
		return adapter.Credential{}, err
	}
	secret, err := a.enc.Decrypt(key.SecretEncrypted)
	if err != nil {
		return adapter.Credential{}, fmt.Errorf("decrypt secret for key %s: %w", id, err)
	}
	return adapter.Credential{
		Provider: key.Provider,
		Secret:   secret,
		Model:    key.ModelName,
	}, nil
}

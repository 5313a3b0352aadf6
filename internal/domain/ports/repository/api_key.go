package repository

import (
	"context"

	"pinterest-ai-studio/internal/domain/model"
)

// APIKeyRepository stores provider credentials. Lookups are always scoped to
// the owning user; a key that exists but belongs to someone else is NotFound.
type APIKeyRepository interface {
	Save(ctx context.Context, tx Tx, k *model.APIKey) error
	FindByID(ctx context.Context, tx Tx, id, userID string) (*model.APIKey, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.APIKey, error)
	Delete(ctx context.Context, tx Tx, id, userID string) error
}

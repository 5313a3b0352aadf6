package repository

import (
	"context"

	"pinterest-ai-studio/internal/domain/model"
)

type PromptTemplateRepository interface {
	Save(ctx context.Context, tx Tx, t *model.PromptTemplate) error
	FindByID(ctx context.Context, tx Tx, id, userID string) (*model.PromptTemplate, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PromptTemplate, error)
	Delete(ctx context.Context, tx Tx, id, userID string) error
}

type PinTemplateRepository interface {
	Save(ctx context.Context, tx Tx, t *model.PinTemplate) error
	FindByID(ctx context.Context, tx Tx, id, userID string) (*model.PinTemplate, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.PinTemplate, error)
	Delete(ctx context.Context, tx Tx, id, userID string) error
}

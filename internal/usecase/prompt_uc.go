package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

type PromptUseCase interface {
	Create(ctx context.Context, userID, name string, stage model.PromptStage, body string) (*model.PromptTemplate, error)
	Update(ctx context.Context, id, userID, name, body string) (*model.PromptTemplate, error)
	Get(ctx context.Context, id, userID string) (*model.PromptTemplate, error)
	List(ctx context.Context, userID string) ([]*model.PromptTemplate, error)
	Delete(ctx context.Context, id, userID string) error
}

var _ PromptUseCase = (*promptUseCase)(nil)

type promptUseCase struct {
	prompts repository.PromptTemplateRepository
	log     *zerolog.Logger
}

func NewPromptUseCase(prompts repository.PromptTemplateRepository, logger *zerolog.Logger) *promptUseCase {
	l := logger.With().Str("component", "PromptUC").Logger()
	return &promptUseCase{prompts: prompts, log: &l}
}

func (p *promptUseCase) Create(ctx context.Context, userID, name string, stage model.PromptStage, body string) (*model.PromptTemplate, error) {
	t, err := model.NewPromptTemplate(userID, name, stage, body)
	if err != nil {
		return nil, err
	}
	if err := p.prompts.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *promptUseCase) Update(ctx context.Context, id, userID, name, body string) (*model.PromptTemplate, error) {
	t, err := p.prompts.FindByID(ctx, nil, id, userID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		t.Name = name
	}
	if body != "" {
		t.Body = body
	}
	t.UpdatedAt = time.Now()
	if err := p.prompts.Save(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (p *promptUseCase) Get(ctx context.Context, id, userID string) (*model.PromptTemplate, error) {
	return p.prompts.FindByID(ctx, nil, id, userID)
}

func (p *promptUseCase) List(ctx context.Context, userID string) ([]*model.PromptTemplate, error) {
	return p.prompts.ListByUser(ctx, nil, userID)
}

func (p *promptUseCase) Delete(ctx context.Context, id, userID string) error {
	return p.prompts.Delete(ctx, nil, id, userID)
}

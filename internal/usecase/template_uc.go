package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
)

// PinTemplateInput carries the editable fields of an overlay template.
type PinTemplateInput struct {
	Name       string
	Width      int
	Height     int
	Background string
	Slots      []model.ImageSlot
	Overlays   []model.TextOverlay
}

type TemplateUseCase interface {
	Create(ctx context.Context, userID string, in PinTemplateInput) (*model.PinTemplate, error)
	Update(ctx context.Context, id, userID string, in PinTemplateInput) (*model.PinTemplate, error)
	Get(ctx context.Context, id, userID string) (*model.PinTemplate, error)
	List(ctx context.Context, userID string) ([]*model.PinTemplate, error)
	Delete(ctx context.Context, id, userID string) error
}

var _ TemplateUseCase = (*templateUseCase)(nil)

type templateUseCase struct {
	templates repository.PinTemplateRepository
	log       *zerolog.Logger
}

func NewTemplateUseCase(templates repository.PinTemplateRepository, logger *zerolog.Logger) *templateUseCase {
	l := logger.With().Str("component", "TemplateUC").Logger()
	return &templateUseCase{templates: templates, log: &l}
}

func (t *templateUseCase) Create(ctx context.Context, userID string, in PinTemplateInput) (*model.PinTemplate, error) {
	tmpl, err := model.NewPinTemplate(userID, in.Name, in.Width, in.Height, in.Slots, in.Overlays)
	if err != nil {
		return nil, err
	}
	tmpl.Background = in.Background
	if err := t.templates.Save(ctx, nil, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (t *templateUseCase) Update(ctx context.Context, id, userID string, in PinTemplateInput) (*model.PinTemplate, error) {
	tmpl, err := t.templates.FindByID(ctx, nil, id, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		tmpl.Name = in.Name
	}
	if in.Width > 0 {
		tmpl.Width = in.Width
	}
	if in.Height > 0 {
		tmpl.Height = in.Height
	}
	tmpl.Background = in.Background
	if len(in.Slots) > 0 {
		tmpl.Slots = in.Slots
	}
	tmpl.Overlays = in.Overlays
	tmpl.UpdatedAt = time.Now()
	if err := t.templates.Save(ctx, nil, tmpl); err != nil {
		return nil, err
	}
	return tmpl, nil
}

func (t *templateUseCase) Get(ctx context.Context, id, userID string) (*model.PinTemplate, error) {
	return t.templates.FindByID(ctx, nil, id, userID)
}

func (t *templateUseCase) List(ctx context.Context, userID string) ([]*model.PinTemplate, error) {
	return t.templates.ListByUser(ctx, nil, userID)
}

func (t *templateUseCase) Delete(ctx context.Context, id, userID string) error {
	return t.templates.Delete(ctx, nil, id, userID)
}

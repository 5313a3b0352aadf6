package model

import (
	"strings"
	"time"

	"pinterest-ai-studio/internal/domain"

	"github.com/google/uuid"
)

// PromptStage names the pipeline stage a prompt template drives.
type PromptStage string

const (
	StageDescription PromptStage = "description"
	StageContent     PromptStage = "content"
	StageImage       PromptStage = "image"
	StageAltText     PromptStage = "alt_text"
)

func (s PromptStage) Valid() bool {
	switch s {
	case StageDescription, StageContent, StageImage, StageAltText:
		return true
	}
	return false
}

// PromptTemplate is a user-editable prompt body with {{placeholder}} slots.
type PromptTemplate struct {
	ID        string
	UserID    string
	Name      string
	Stage     PromptStage
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewPromptTemplate(userID, name string, stage PromptStage, body string) (*PromptTemplate, error) {
	if userID == "" || name == "" || body == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !stage.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PromptTemplate{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Stage:     stage,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Render substitutes {{key}} placeholders. Unknown placeholders are left
// in place so a bad template is visible in the stage log rather than silent.
func (t *PromptTemplate) Render(vars map[string]string) string {
	out := t.Body
	for k, v := range vars {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

package model

import (
	"time"

	"pinterest-ai-studio/internal/domain"

	"github.com/google/uuid"
)

// ImageSlot positions a generated base image inside a pin template.
// Coordinates and sizes are in template pixels.
type ImageSlot struct {
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Opacity float64 `json:"opacity"` // 0..1, 0 treated as 1
}

// TextOverlay draws a text element on top of the composited image.
type TextOverlay struct {
	Text  string  `json:"text"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Size  float64 `json:"size"`
	Color string  `json:"color"` // #rrggbb
}

// PinTemplate is an overlay template: a background with one or more image
// placeholder slots and optional text overlays, flattened at composite time.
type PinTemplate struct {
	ID         string
	UserID     string
	Name       string
	Width      int
	Height     int
	Background string // #rrggbb, empty means white
	Slots      []ImageSlot
	Overlays   []TextOverlay
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewPinTemplate(userID, name string, width, height int, slots []ImageSlot, overlays []TextOverlay) (*PinTemplate, error) {
	if userID == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	if width <= 0 || height <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if len(slots) == 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PinTemplate{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Width:     width,
		Height:    height,
		Slots:     slots,
		Overlays:  overlays,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

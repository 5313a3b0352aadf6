package model

import (
	"time"

	"github.com/google/uuid"
)

type PinStatus string

const (
	PinCompleted PinStatus = "COMPLETED"
	PinFailed    PinStatus = "FAILED"
)

// GeneratedPin is one produced artifact: the final composited image plus the
// textual metadata around it. Created once per successful generation attempt
// and never mutated afterwards, except a status correction when a later
// stage invalidates it.
type GeneratedPin struct {
	ID          string
	RowID       string
	Title       string
	Description string
	Keywords    []string
	AltText     string
	ImagePath   string
	Status      PinStatus
	StageLogs   []StageLog
	CreatedAt   time.Time
}

func NewGeneratedPin(rowID, title, description string, keywords []string, imagePath string) *GeneratedPin {
	return &GeneratedPin{
		ID:          uuid.NewString(),
		RowID:       rowID,
		Title:       title,
		Description: description,
		Keywords:    keywords,
		ImagePath:   imagePath,
		Status:      PinCompleted,
		CreatedAt:   time.Now(),
	}
}

func (p *GeneratedPin) AddStageLog(l StageLog) {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	p.StageLogs = append(p.StageLogs, l)
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type BulkRowStatus string

const (
	BulkRowPending    BulkRowStatus = "PENDING"
	BulkRowProcessing BulkRowStatus = "PROCESSING"
	BulkRowCompleted  BulkRowStatus = "COMPLETED"
	BulkRowFailed     BulkRowStatus = "FAILED"
)

// StageLog records one stage call: what was sent, what came back (or the
// error), and when. Kept verbatim for post-hoc diagnosis.
type StageLog struct {
	Stage     string    `json:"stage"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Request   string    `json:"request"`
	Response  string    `json:"response,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// BulkRow is one generation unit within a job. Position fixes processing
// order (creation order). User-supplied Title/Description/AltText override
// the corresponding generated values.
type BulkRow struct {
	ID          string
	JobID       string
	Position    int
	Keywords    string // topic/keyword seed
	SourceImage string // path or URL of the row's source image
	Title       string
	Description string
	AltText     string
	Quantity    int
	PublishAt   *time.Time
	Status      BulkRowStatus
	Error       string
	StageLogs   []StageLog
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewBulkRow(jobID string, position int, keywords, sourceImage string, quantity int) *BulkRow {
	if quantity <= 0 {
		quantity = 1
	}
	now := time.Now()
	return &BulkRow{
		ID:          uuid.NewString(),
		JobID:       jobID,
		Position:    position,
		Keywords:    keywords,
		SourceImage: sourceImage,
		Quantity:    quantity,
		Status:      BulkRowPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (r *BulkRow) AddStageLog(l StageLog) {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	r.StageLogs = append(r.StageLogs, l)
	r.UpdatedAt = time.Now()
}

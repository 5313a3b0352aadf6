package model

import (
	"time"

	"pinterest-ai-studio/internal/domain"

	"github.com/google/uuid"
)

type BulkJobStatus string

const (
	BulkJobPending    BulkJobStatus = "PENDING"
	BulkJobProcessing BulkJobStatus = "PROCESSING"
	BulkJobCompleted  BulkJobStatus = "COMPLETED"
	BulkJobFailed     BulkJobStatus = "FAILED"
	BulkJobCancelled  BulkJobStatus = "CANCELLED"
)

// StageConfig selects the provider for one LLM-driven pipeline stage.
// APIKeyID is a weak reference into the credential store; Model overrides
// the credential's default model when set.
type StageConfig struct {
	APIKeyID string `json:"apiKeyId"`
	Model    string `json:"model,omitempty"`
}

// BulkJob is the aggregate root for one bulk generation request.
// Counters are only ever incremented by the orchestrator while it runs.
type BulkJob struct {
	ID            string
	UserID        string
	Name          string
	Description   StageConfig
	Content       StageConfig
	Image         StageConfig
	PinTemplateID string // empty means no compositing
	Width         int
	Height        int
	TotalRows     int
	CompletedRows int
	FailedRows    int
	Status        BulkJobStatus
	Error         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}

func NewBulkJob(userID, name string, desc, content, image StageConfig, pinTemplateID string, width, height, totalRows int) (*BulkJob, error) {
	if userID == "" || totalRows <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if desc.APIKeyID == "" || content.APIKeyID == "" || image.APIKeyID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if width <= 0 {
		width = 1000
	}
	if height <= 0 {
		height = 1500
	}
	now := time.Now()
	return &BulkJob{
		ID:            uuid.NewString(),
		UserID:        userID,
		Name:          name,
		Description:   desc,
		Content:       content,
		Image:         image,
		PinTemplateID: pinTemplateID,
		Width:         width,
		Height:        height,
		TotalRows:     totalRows,
		Status:        BulkJobPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (j *BulkJob) IsTerminal() bool {
	switch j.Status {
	case BulkJobCompleted, BulkJobFailed, BulkJobCancelled:
		return true
	}
	return false
}

// CanCancel: CANCELLED is reachable only from PENDING or PROCESSING.
func (j *BulkJob) CanCancel() bool {
	return j.Status == BulkJobPending || j.Status == BulkJobProcessing
}

// CanDelete: a job is never deleted while PROCESSING; cancel first.
func (j *BulkJob) CanDelete() bool {
	return j.Status != BulkJobProcessing
}

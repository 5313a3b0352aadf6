package repository

import (
	"context"
	"time"

	"pinterest-ai-studio/internal/domain/model"
)

// JobFilter narrows ListByUser.
type JobFilter struct {
	Status model.BulkJobStatus // empty means any
	Offset int
	Limit  int
}

// BulkJobRepository is the durable job store: jobs, their rows, and the pins
// the rows produced. The orchestrator is the sole writer to a job's counters
// while it runs; reads are always safe.
type BulkJobRepository interface {
	// Create persists the job and all of its rows (PENDING) atomically.
	Create(ctx context.Context, tx Tx, job *model.BulkJob, rows []*model.BulkRow) error

	FindByID(ctx context.Context, tx Tx, id string) (*model.BulkJob, error)
	FindByIDForUser(ctx context.Context, tx Tx, id, userID string) (*model.BulkJob, error)
	ListByUser(ctx context.Context, tx Tx, userID string, f JobFilter) ([]*model.BulkJob, error)

	// MarkProcessing flips PENDING -> PROCESSING and reports whether the
	// transition happened. The idempotent guard against duplicate triggers.
	MarkProcessing(ctx context.Context, tx Tx, id string) (bool, error)

	// UpdateStatusIf moves the job to status only when its current status is
	// one of from. Reports whether the transition happened; false means a
	// concurrent writer reached a terminal status first.
	UpdateStatusIf(ctx context.Context, tx Tx, id string, status model.BulkJobStatus, errText string, from ...model.BulkJobStatus) (bool, error)

	// UpdateCounters overwrites the aggregate counters. Called after every
	// row so a mid-run crash leaves a correct partial count.
	UpdateCounters(ctx context.Context, tx Tx, id string, completed, failed int) error

	// Delete cascades to rows and pins. Callers must reject PROCESSING jobs.
	Delete(ctx context.Context, tx Tx, id string) error

	// FindStaleProcessing lists jobs stuck PROCESSING since before cutoff.
	FindStaleProcessing(ctx context.Context, tx Tx, cutoff time.Time) ([]*model.BulkJob, error)

	// Rows.
	ListRows(ctx context.Context, tx Tx, jobID string) ([]*model.BulkRow, error)
	SaveRow(ctx context.Context, tx Tx, row *model.BulkRow) error

	// Pins.
	CreatePin(ctx context.Context, tx Tx, pin *model.GeneratedPin) error
	ListPinsByJob(ctx context.Context, tx Tx, jobID string) ([]*model.GeneratedPin, error)
}

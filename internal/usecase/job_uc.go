package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/logging"
)

// RowInput is one spreadsheet-style row of a job creation request.
type RowInput struct {
	Keywords    string
	SourceImage string
	Title       string
	Description string
	AltText     string
	Quantity    int
	PublishAt   *time.Time
}

// CreateJobInput is the full bulk job request as submitted.
type CreateJobInput struct {
	Name          string
	Description   model.StageConfig
	Content       model.StageConfig
	Image         model.StageConfig
	PinTemplateID string
	Width         int
	Height        int
	Rows          []RowInput
}

// JobDetail is a job with its rows and every pin produced so far.
type JobDetail struct {
	Job  *model.BulkJob
	Rows []*model.BulkRow
	Pins []*model.GeneratedPin
}

type JobUseCase interface {
	Create(ctx context.Context, userID string, in CreateJobInput) (*model.BulkJob, error)
	Get(ctx context.Context, id, userID string) (*JobDetail, error)
	List(ctx context.Context, userID string, f repository.JobFilter) ([]*model.BulkJob, error)
	Cancel(ctx context.Context, id, userID string) (*model.BulkJob, error)
	Delete(ctx context.Context, id, userID string) error
}

// ArtifactRemover deletes a job's on-disk artifacts after the DB cascade.
type ArtifactRemover interface {
	DeleteDir(dir string) error
}

var _ JobUseCase = (*jobUseCase)(nil)

type jobUseCase struct {
	jobs      repository.BulkJobRepository
	templates repository.PinTemplateRepository
	keys      APIKeyUseCase
	tm        repository.TransactionManager
	queue     adapter.TaskQueue
	artifacts ArtifactRemover
	log       *zerolog.Logger
}

func NewJobUseCase(
	jobs repository.BulkJobRepository,
	templates repository.PinTemplateRepository,
	keys APIKeyUseCase,
	tm repository.TransactionManager,
	queue adapter.TaskQueue,
	artifacts ArtifactRemover,
	logger *zerolog.Logger,
) *jobUseCase {
	l := logger.With().Str("component", "JobUC").Logger()
	return &jobUseCase{
		jobs:      jobs,
		templates: templates,
		keys:      keys,
		tm:        tm,
		queue:     queue,
		artifacts: artifacts,
		log:       &l,
	}
}

// Create validates the whole request synchronously: bad credentials, a
// missing template, or an empty row set fail the request before any row is
// persisted. On success the job and its rows are stored PENDING in one
// transaction and a generation task is enqueued fire-and-forget.
func (j *jobUseCase) Create(ctx context.Context, userID string, in CreateJobInput) (*model.BulkJob, error) {
	defer logging.TraceDuration(j.log, "JobUC.Create")()

	if len(in.Rows) == 0 {
		return nil, fmt.Errorf("%w: job needs at least one row", domain.ErrInvalidArgument)
	}
	for _, cfg := range []model.StageConfig{in.Description, in.Content, in.Image} {
		if _, err := j.keys.Resolve(ctx, cfg.APIKeyID, userID); err != nil {
			return nil, fmt.Errorf("stage credential %s: %w", cfg.APIKeyID, err)
		}
	}
	if in.PinTemplateID != "" {
		if _, err := j.templates.FindByID(ctx, nil, in.PinTemplateID, userID); err != nil {
			return nil, fmt.Errorf("pin template: %w", err)
		}
	}

	job, err := model.NewBulkJob(userID, in.Name, in.Description, in.Content, in.Image,
		in.PinTemplateID, in.Width, in.Height, len(in.Rows))
	if err != nil {
		return nil, err
	}
	rows := make([]*model.BulkRow, 0, len(in.Rows))
	for i, r := range in.Rows {
		row := model.NewBulkRow(job.ID, i, r.Keywords, r.SourceImage, r.Quantity)
		row.Title = r.Title
		row.Description = r.Description
		row.AltText = r.AltText
		row.PublishAt = r.PublishAt
		rows = append(rows, row)
	}

	err = j.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return j.jobs.Create(ctx, tx, job, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("persist job: %w", err)
	}

	if err := j.queue.EnqueueBulkGeneration(ctx, job.ID); err != nil {
		// The job stays PENDING and can be retriggered; surface the fault.
		return nil, fmt.Errorf("dispatch job %s: %w", job.ID, err)
	}
	j.log.Info().Str("job_id", job.ID).Int("rows", len(rows)).Msg("bulk job created")
	return job, nil
}

func (j *jobUseCase) Get(ctx context.Context, id, userID string) (*JobDetail, error) {
	job, err := j.jobs.FindByIDForUser(ctx, nil, id, userID)
	if err != nil {
		return nil, err
	}
	rows, err := j.jobs.ListRows(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	pins, err := j.jobs.ListPinsByJob(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: job, Rows: rows, Pins: pins}, nil
}

func (j *jobUseCase) List(ctx context.Context, userID string, f repository.JobFilter) ([]*model.BulkJob, error) {
	return j.jobs.ListByUser(ctx, nil, userID, f)
}

// Cancel flips the job to CANCELLED. A running orchestrator observes the new
// status at the next row boundary; untouched rows stay PENDING.
func (j *jobUseCase) Cancel(ctx context.Context, id, userID string) (*model.BulkJob, error) {
	job, err := j.jobs.FindByIDForUser(ctx, nil, id, userID)
	if err != nil {
		return nil, err
	}
	if !job.CanCancel() {
		return nil, domain.ErrJobNotCancellable
	}
	// The status guard covers the race with a completing orchestrator: a job
	// that reached a terminal status after the read above is not cancellable.
	ok, err := j.jobs.UpdateStatusIf(ctx, nil, id, model.BulkJobCancelled, "cancelled by user",
		model.BulkJobPending, model.BulkJobProcessing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrJobNotCancellable
	}
	job.Status = model.BulkJobCancelled
	j.log.Info().Str("job_id", id).Msg("job cancelled")
	return job, nil
}

func (j *jobUseCase) Delete(ctx context.Context, id, userID string) error {
	job, err := j.jobs.FindByIDForUser(ctx, nil, id, userID)
	if err != nil {
		return err
	}
	if !job.CanDelete() {
		return domain.ErrJobProcessing
	}
	if err := j.jobs.Delete(ctx, nil, id); err != nil {
		return err
	}
	if err := j.artifacts.DeleteDir(id); err != nil {
		j.log.Warn().Err(err).Str("job_id", id).Msg("remove job artifacts")
	}
	return nil
}

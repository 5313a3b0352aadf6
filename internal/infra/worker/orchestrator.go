package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain"
	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/adapter"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/logging"
	"pinterest-ai-studio/internal/infra/metrics"
	redislock "pinterest-ai-studio/internal/infra/redis"
)

// CredentialResolver decrypts a stored API key into a usable credential.
type CredentialResolver interface {
	Resolve(ctx context.Context, apiKeyID, userID string) (adapter.Credential, error)
}

// Orchestrator drives one bulk job from PENDING to a terminal status. It is
// invoked by the task queue worker and never returns stage errors upward;
// everything it learns is recorded on the job and its rows.
type Orchestrator struct {
	jobs      repository.BulkJobRepository
	templates repository.PinTemplateRepository
	prompts   repository.PromptTemplateRepository
	creds     CredentialResolver
	factory   adapter.StageClientFactory
	rows      *RowProcessor
	locker    redislock.Locker
	lockTTL   time.Duration
	log       *zerolog.Logger
}

func NewOrchestrator(
	jobs repository.BulkJobRepository,
	templates repository.PinTemplateRepository,
	prompts repository.PromptTemplateRepository,
	creds CredentialResolver,
	factory adapter.StageClientFactory,
	rows *RowProcessor,
	locker redislock.Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *Orchestrator {
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	l := logger.With().Str("component", "Orchestrator").Logger()
	return &Orchestrator{
		jobs:      jobs,
		templates: templates,
		prompts:   prompts,
		creds:     creds,
		factory:   factory,
		rows:      rows,
		locker:    locker,
		lockTTL:   lockTTL,
		log:       &l,
	}
}

// Process runs the job to a terminal status. The PENDING guard in
// MarkProcessing makes duplicate deliveries no-ops; the redis lock covers
// retriggers of a job that is already mid-run.
func (o *Orchestrator) Process(ctx context.Context, jobID string) {
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, o.log)

	token, err := o.locker.TryLock(ctx, "job:lock:"+jobID, o.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			log.Info().Msg("job lock held elsewhere, skipping")
		} else {
			log.Error().Err(err).Msg("acquire job lock")
		}
		return
	}
	defer func() {
		if err := o.locker.Unlock(context.Background(), "job:lock:"+jobID, token); err != nil {
			log.Warn().Err(err).Msg("release job lock")
		}
	}()

	job, err := o.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		log.Error().Err(err).Msg("load job")
		return
	}

	ok, err := o.jobs.MarkProcessing(ctx, nil, jobID)
	if err != nil {
		log.Error().Err(err).Msg("mark processing")
		return
	}
	if !ok {
		log.Info().Str("status", string(job.Status)).Msg("job not pending, skipping")
		return
	}

	start := time.Now()

	// Configuration faults are job-level: unreadable credentials or a
	// missing template fail the whole job before any row runs.
	clients, err := o.buildStages(ctx, job)
	if err != nil {
		o.failJob(ctx, log, jobID, fmt.Sprintf("resolve stage credentials: %v", err))
		return
	}
	var tmpl *model.PinTemplate
	if job.PinTemplateID != "" {
		tmpl, err = o.templates.FindByID(ctx, nil, job.PinTemplateID, job.UserID)
		if err != nil {
			o.failJob(ctx, log, jobID, fmt.Sprintf("load pin template: %v", err))
			return
		}
	}

	prompts, err := o.loadPrompts(ctx, job.UserID)
	if err != nil {
		log.Error().Err(err).Msg("load prompt templates")
		return
	}

	rows, err := o.jobs.ListRows(ctx, nil, jobID)
	if err != nil {
		log.Error().Err(err).Msg("list rows")
		return
	}

	completed, failed := job.CompletedRows, job.FailedRows
	for _, row := range rows {
		if row.Status != model.BulkRowPending {
			continue
		}
		// Cancellation is observed at row boundaries; untouched rows
		// stay PENDING.
		cancelled, err := o.isCancelled(ctx, jobID)
		if err != nil {
			log.Error().Err(err).Msg("re-read job status")
			return
		}
		if cancelled {
			log.Info().Int("completed", completed).Int("failed", failed).Msg("job cancelled mid-run")
			metrics.IncBulkJob(string(model.BulkJobCancelled))
			metrics.ObserveJobDuration(time.Since(start).Seconds())
			return
		}

		rctx := logging.WithRowID(ctx, row.ID)
		rowDone, err := o.rows.ProcessRow(rctx, job, row, clients, prompts, tmpl)
		if err != nil {
			// Persistence fault: log and stop, the job stays in its
			// last persisted state for the reaper.
			log.Error().Err(err).Str("row_id", row.ID).Msg("row persistence fault")
			return
		}
		if rowDone {
			completed++
		} else {
			failed++
		}
		if err := o.jobs.UpdateCounters(ctx, nil, jobID, completed, failed); err != nil {
			log.Error().Err(err).Msg("update counters")
			return
		}
	}

	cancelled, err := o.isCancelled(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Msg("re-read job status")
		return
	}
	if cancelled {
		metrics.IncBulkJob(string(model.BulkJobCancelled))
		metrics.ObserveJobDuration(time.Since(start).Seconds())
		return
	}

	// Partial success still completes; FAILED is reserved for job-level
	// faults, row failures live in the counters. The PROCESSING guard keeps
	// a cancel that lands after the re-read above from being overwritten.
	ok, err = o.jobs.UpdateStatusIf(ctx, nil, jobID, model.BulkJobCompleted, "", model.BulkJobProcessing)
	if err != nil {
		log.Error().Err(err).Msg("complete job")
		return
	}
	if !ok {
		log.Info().Msg("job cancelled during completion")
		metrics.IncBulkJob(string(model.BulkJobCancelled))
		metrics.ObserveJobDuration(time.Since(start).Seconds())
		return
	}
	metrics.IncBulkJob(string(model.BulkJobCompleted))
	metrics.ObserveJobDuration(time.Since(start).Seconds())
	log.Info().Int("completed", completed).Int("failed", failed).Msg("job finished")
}

// loadPrompts resolves the user's stage prompts; the newest template per
// stage wins, stages without one fall back to the built-in bodies.
func (o *Orchestrator) loadPrompts(ctx context.Context, userID string) (map[model.PromptStage]*model.PromptTemplate, error) {
	list, err := o.prompts.ListByUser(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[model.PromptStage]*model.PromptTemplate, len(list))
	for _, t := range list {
		cur, ok := out[t.Stage]
		if !ok || t.UpdatedAt.After(cur.UpdatedAt) {
			out[t.Stage] = t
		}
	}
	return out, nil
}

func (o *Orchestrator) isCancelled(ctx context.Context, jobID string) (bool, error) {
	fresh, err := o.jobs.FindByID(ctx, nil, jobID)
	if err != nil {
		return false, err
	}
	return fresh.Status == model.BulkJobCancelled, nil
}

func (o *Orchestrator) failJob(ctx context.Context, log *zerolog.Logger, jobID, errText string) {
	ok, err := o.jobs.UpdateStatusIf(ctx, nil, jobID, model.BulkJobFailed, errText, model.BulkJobProcessing)
	if err != nil {
		log.Error().Err(err).Msg("mark job failed")
		return
	}
	if !ok {
		log.Info().Str("error", errText).Msg("job no longer processing, failure not recorded")
		return
	}
	metrics.IncBulkJob(string(model.BulkJobFailed))
	log.Warn().Str("error", errText).Msg("job failed")
}

// buildStages resolves the three stage credentials and builds their clients.
func (o *Orchestrator) buildStages(ctx context.Context, job *model.BulkJob) (stageSet, error) {
	var set stageSet
	var err error
	if set.description, err = o.bindStage(ctx, job.UserID, job.Description); err != nil {
		return stageSet{}, fmt.Errorf("description: %w", err)
	}
	if set.content, err = o.bindStage(ctx, job.UserID, job.Content); err != nil {
		return stageSet{}, fmt.Errorf("content: %w", err)
	}
	if set.image, err = o.bindStage(ctx, job.UserID, job.Image); err != nil {
		return stageSet{}, fmt.Errorf("image: %w", err)
	}
	return set, nil
}

func (o *Orchestrator) bindStage(ctx context.Context, userID string, cfg model.StageConfig) (stageBinding, error) {
	cred, err := o.creds.Resolve(ctx, cfg.APIKeyID, userID)
	if err != nil {
		return stageBinding{}, err
	}
	if cfg.Model != "" {
		cred.Model = cfg.Model
	}
	client, err := o.factory.ForCredential(ctx, cred)
	if err != nil {
		return stageBinding{}, err
	}
	label := cred.Model
	if label == "" {
		label = "default"
	}
	return stageBinding{client: client, provider: string(cred.Provider), model: label}, nil
}

package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/model"
	"pinterest-ai-studio/internal/domain/ports/repository"
	"pinterest-ai-studio/internal/infra/metrics"
)

// Reaper is the crash recovery path: a job left PROCESSING by a dead worker
// stays in its last persisted state until the reaper fails it, so its
// partial counters and finished rows remain visible.
type Reaper struct {
	jobs     repository.BulkJobRepository
	maxAge   time.Duration
	interval time.Duration
	log      *zerolog.Logger
}

func NewReaper(jobs repository.BulkJobRepository, maxAge, interval time.Duration, logger *zerolog.Logger) *Reaper {
	if maxAge <= 0 {
		maxAge = 2 * time.Hour
	}
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	l := logger.With().Str("component", "Reaper").Logger()
	return &Reaper{jobs: jobs, maxAge: maxAge, interval: interval, log: &l}
}

// Run ticks until ctx is done. One sweep runs immediately on start so a
// restart after a crash recovers without waiting a full interval.
func (r *Reaper) Run(ctx context.Context) {
	r.sweep(ctx)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxAge)
	stale, err := r.jobs.FindStaleProcessing(ctx, nil, cutoff)
	if err != nil {
		r.log.Error().Err(err).Msg("list stale jobs")
		return
	}
	for _, job := range stale {
		ok, err := r.jobs.UpdateStatusIf(ctx, nil, job.ID, model.BulkJobFailed,
			"processing exceeded "+r.maxAge.String()+", presumed crashed",
			model.BulkJobProcessing)
		if err != nil {
			r.log.Error().Err(err).Str("job_id", job.ID).Msg("fail stale job")
			continue
		}
		if !ok {
			// Finished between the sweep query and the update.
			continue
		}
		metrics.IncBulkJob(string(model.BulkJobFailed))
		r.log.Warn().
			Str("job_id", job.ID).
			Int("completed", job.CompletedRows).
			Int("failed", job.FailedRows).
			Msg("stale job reaped")
	}
}

package adapter

import "context"

// TaskQueue dispatches detached background work. Job creation enqueues the
// job id and returns immediately; a worker picks it up and runs the
// orchestrator.
type TaskQueue interface {
	EnqueueBulkGeneration(ctx context.Context, jobID string) error
}

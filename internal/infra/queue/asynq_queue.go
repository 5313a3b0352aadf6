package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"pinterest-ai-studio/internal/domain/ports/adapter"
)

const (
	taskTypeBulkGenerate = "pins:bulk_generate"
	queueName            = "generation"
)

type bulkGeneratePayload struct {
	JobID string `json:"jobId"`
}

// Orchestrator is what the worker side invokes per dequeued job.
type Orchestrator interface {
	Process(ctx context.Context, jobID string)
}

var _ adapter.TaskQueue = (*Client)(nil)

// Client enqueues bulk generation tasks. Implements adapter.TaskQueue.
type Client struct {
	cli *asynq.Client
}

func NewClient(redisURL, password string, db int) (*Client, error) {
	opt := asynq.RedisClientOpt{Addr: redisURL, Password: password, DB: db}
	return &Client{cli: asynq.NewClient(opt)}, nil
}

// EnqueueBulkGeneration is fire-and-forget: the creation request returns as
// soon as the task is queued. MaxRetry is zero; a redelivered task would be a
// no-op anyway because the orchestrator only starts PENDING jobs.
func (c *Client) EnqueueBulkGeneration(ctx context.Context, jobID string) error {
	body, err := json.Marshal(bulkGeneratePayload{JobID: jobID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskTypeBulkGenerate, body, asynq.Queue(queueName))
	if _, err := c.cli.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue bulk generation: %w", err)
	}
	return nil
}

func (c *Client) Close() error { return c.cli.Close() }

// Server runs the worker side: it owns the asynq server and routes the bulk
// generation task type to the orchestrator.
type Server struct {
	srv  *asynq.Server
	mux  *asynq.ServeMux
	orch Orchestrator
	log  *zerolog.Logger
}

func NewServer(redisURL, password string, db, concurrency int, orch Orchestrator, logger *zerolog.Logger) *Server {
	opt := asynq.RedisClientOpt{Addr: redisURL, Password: password, DB: db}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName: 1,
		},
	})
	s := &Server{
		srv:  srv,
		mux:  asynq.NewServeMux(),
		orch: orch,
		log:  logger,
	}
	s.mux.HandleFunc(taskTypeBulkGenerate, s.handleBulkGenerate)
	return s
}

// Start runs the asynq server in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.Run(s.mux); err != nil && err != asynq.ErrServerClosed {
			s.log.Error().Err(err).Msg("asynq server stopped")
		}
	}()
}

func (s *Server) Shutdown() {
	s.srv.Shutdown()
}

// handleBulkGenerate never returns an error for stage failures; those are
// recorded on the job and rows. An error here would only mean a malformed
// payload.
func (s *Server) handleBulkGenerate(ctx context.Context, t *asynq.Task) error {
	var p bulkGeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if p.JobID == "" {
		return fmt.Errorf("empty job id")
	}
	s.orch.Process(ctx, p.JobID)
	return nil
}

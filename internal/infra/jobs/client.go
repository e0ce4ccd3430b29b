package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/agentshield/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueAnalysisRun enqueues a dynamic analysis run job.
func (c *Client) EnqueueAnalysisRun(ctx context.Context, payload AnalysisRunPayload) error {
	task, err := NewAnalysisRunTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue analysis run",
			"run_id", payload.RunID,
			"agent_id", payload.AgentID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("analysis run queued",
		"task_id", info.ID,
		"run_id", payload.RunID,
		"agent_id", payload.AgentID,
		"queue", info.Queue,
	)
	return nil
}

package jobs

import (
	"context"
	"fmt"

	"lead-call-platform/internal/config"

	"github.com/hibiken/asynq"
)

// Enqueuer schedules background work. Handlers depend on this rather than
// the concrete client so tests can capture enqueued tasks.
type Enqueuer interface {
	EnqueueAnalyzeTranscript(ctx context.Context, payload AnalyzeTranscriptPayload) error
}

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{client: asynq.NewClient(redisClientOpt(cfg))}
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueAnalyzeTranscript(ctx context.Context, payload AnalyzeTranscriptPayload) error {
	if c == nil || c.client == nil {
		return nil
	}
	task, err := NewAnalyzeTranscriptTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
	return err
}

func redisClientOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
}

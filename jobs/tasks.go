package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeWelcomeEmail is the task type for post-registration welcome mail.
	TaskTypeWelcomeEmail = "mail:welcome"
)

// WelcomeEmailPayload describes the information required to send a welcome
// email.
type WelcomeEmailPayload struct {
	Email string `json:"email"`
}

// NewWelcomeEmailTask constructs an Asynq task.
func NewWelcomeEmailTask(payload WelcomeEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeWelcomeEmail, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueWelcome enqueues a welcome email task for the given address.
func (c *Client) EnqueueWelcome(ctx context.Context, email string) error {
	task, err := NewWelcomeEmailTask(WelcomeEmailPayload{Email: email})
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
	return err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

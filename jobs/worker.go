package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/spacekimchi/tradesalsa/internal/mail"
	"github.com/spacekimchi/tradesalsa/internal/view"
)

const welcomeSubject = "Welcome to TradeSalsa!"

// Worker wraps the Asynq server processing mail tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Templates *view.Engine
	Sender    mail.Sender
	BaseURL   string
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) *Worker {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeWelcomeEmail, welcomeEmailHandler(cfg))
	return &Worker{server: srv, mux: mux, logger: cfg.Logger}
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func welcomeEmailHandler(cfg WorkerConfig) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WelcomeEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		body, err := cfg.Templates.RenderString("emails/welcome.html", map[string]string{
			"Email":   payload.Email,
			"BaseURL": cfg.BaseURL,
		})
		if err != nil {
			cfg.Logger.Error("render welcome email", slog.Any("error", err))
			return asynq.SkipRetry
		}
		if err := cfg.Sender.Send(payload.Email, welcomeSubject, body); err != nil {
			cfg.Logger.Warn("send welcome email", slog.String("to", payload.Email), slog.Any("error", err))
			return err
		}
		return nil
	}
}

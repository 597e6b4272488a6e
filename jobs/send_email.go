package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
)

// SendEmailJob delivers queued transactional mail.
type SendEmailJob struct {
	Mailer Mailer
	Logger *slog.Logger
}

// NewSendEmailJob initialises the send-email handler.
func NewSendEmailJob(mailer Mailer, logger *slog.Logger) *SendEmailJob {
	return &SendEmailJob{Mailer: mailer, Logger: logger}
}

// Handle executes one send-email task.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Mailer == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.To == "" {
		return asynq.SkipRetry
	}
	if err := j.Mailer.Send(payload.To, payload.Subject, payload.Body); err != nil {
		j.logger().Error("send email", slog.String("to", payload.To), slog.Any("error", err))
		return err
	}
	j.logger().Info("email sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeSendEmail))
	}
	return slog.Default().With(slog.String("job", TaskTypeSendEmail))
}

package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salus-crm/salus-crm/internal/appointments"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// ReminderSource lists the appointments the sweep should notify.
type ReminderSource interface {
	DueForReminder(ctx context.Context, from, to time.Time) ([]appointments.ReminderTarget, error)
}

// Enqueuer submits follow-up tasks produced by a job.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload) (*asynq.TaskInfo, error)
}

// AuditRecorder persists the audit trail entries jobs produce. Jobs have
// no acting user, so entries carry an empty actor.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReminderSweepJob finds upcoming appointments and queues one reminder
// email per patient. A failure on one appointment does not stop the sweep.
type ReminderSweepJob struct {
	Source   ReminderSource
	Enqueuer Enqueuer
	Audit    AuditRecorder
	Logger   *slog.Logger
	clock    func() time.Time
}

// NewReminderSweepJob initialises the reminder sweep handler.
func NewReminderSweepJob(source ReminderSource, enqueuer Enqueuer, audit AuditRecorder, logger *slog.Logger) *ReminderSweepJob {
	return &ReminderSweepJob{
		Source:   source,
		Enqueuer: enqueuer,
		Audit:    audit,
		Logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one reminder sweep.
func (j *ReminderSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Source == nil || j.Enqueuer == nil {
		return errors.New("reminder sweep: handler not configured")
	}
	var payload ReminderSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.HoursAhead <= 0 {
		payload.HoursAhead = 24
	}

	now := j.now()
	from := now
	to := now.Add(time.Duration(payload.HoursAhead) * time.Hour)

	logger := j.logger().With(slog.Int("hours_ahead", payload.HoursAhead))
	logger.Info("starting reminder sweep")

	targets, err := j.Source.DueForReminder(ctx, from, to)
	if err != nil {
		logger.Error("sweep failed", slog.Any("error", err))
		return err
	}

	queued := 0
	for _, target := range targets {
		if target.PatientEmail == "" {
			continue
		}
		_, err := j.Enqueuer.EnqueueSendEmail(ctx, SendEmailPayload{
			To:      target.PatientEmail,
			Subject: fmt.Sprintf("Lembrete de consulta - %s", target.ClinicName),
			Body: fmt.Sprintf(
				"Olá %s,\n\nVocê tem uma consulta marcada em %s no dia %s.\n\nSe não puder comparecer, entre em contato com a clínica.",
				target.PatientName,
				target.ClinicName,
				target.StartsAt.Format("02/01/2006 às 15:04"),
			),
		})
		if err != nil {
			logger.Warn("enqueue reminder",
				slog.String("appointment", target.AppointmentID),
				slog.Any("error", err),
			)
			continue
		}
		queued++

		if j.Audit != nil {
			if err := j.Audit.Record(ctx, shared.AuditLog{
				Action:   "APPOINTMENT_REMINDER_QUEUED",
				Entity:   "APPOINTMENT",
				EntityID: target.AppointmentID,
				Meta:     map[string]any{"to": target.PatientEmail},
			}); err != nil {
				logger.Warn("audit reminder",
					slog.String("appointment", target.AppointmentID),
					slog.Any("error", err),
				)
			}
		}
	}

	logger.Info("completed reminder sweep",
		slog.Int("candidates", len(targets)),
		slog.Int("queued", queued),
		slog.Duration("duration", time.Since(now)),
	)
	return nil
}

func (j *ReminderSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeReminderSweep))
	}
	return slog.Default().With(slog.String("job", TaskTypeReminderSweep))
}

func (j *ReminderSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

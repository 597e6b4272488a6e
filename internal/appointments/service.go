package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// PatientDirectory resolves which clinic a patient belongs to.
type PatientDirectory interface {
	ClinicOf(ctx context.Context, patientID string) (string, error)
}

// Service wraps scheduling business rules.
type Service struct {
	store    Store
	patients PatientDirectory
	audit    *shared.AuditLogger
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, patients PatientDirectory, audit *shared.AuditLogger) *Service {
	return &Service{store: store, patients: patients, audit: audit, now: time.Now}
}

// Get fetches an appointment.
func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.store.GetByID(ctx, id)
}

// List returns the clinic's appointments. Medicos only ever see their own
// agenda, regardless of the filters they send.
func (s *Service) List(ctx context.Context, caller authz.Identity, req ListAppointmentsRequest) ([]Appointment, error) {
	if caller.Role == authz.RoleMedico {
		own := caller.UserID
		req.ProfessionalID = &own
	}
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 100
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.store.List(ctx, req)
}

// Create books an appointment. The slot must be in the future, well formed
// and free for the professional.
func (s *Service) Create(ctx context.Context, actor authz.Identity, clinicID string, req CreateAppointmentRequest) (*Appointment, error) {
	startsAt, endsAt, err := s.parseWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	// the patient must belong to the clinic being booked; callers with
	// global scope can otherwise pass patient and clinic from different
	// tenants
	patientClinic, err := s.patients.ClinicOf(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if patientClinic != clinicID {
		return nil, fmt.Errorf("%w: paciente pertence a outra clínica", shared.ErrValidation)
	}

	busy, err := s.store.Overlapping(ctx, req.ProfessionalID, startsAt, endsAt, "")
	if err != nil {
		return nil, err
	}
	if busy {
		return nil, fmt.Errorf("%w: horário indisponível para o profissional", shared.ErrDuplicate)
	}

	a := &Appointment{
		ID:             uuid.NewString(),
		ClinicID:       clinicID,
		PatientID:      req.PatientID,
		ProfessionalID: req.ProfessionalID,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		Status:         StatusScheduled,
		Reason:         req.Reason,
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "APPOINTMENT_CREATED", a.ID, clinicID, map[string]any{
		"professionalId": a.ProfessionalID,
		"startsAt":       a.StartsAt,
	})
	return a, nil
}

// Reschedule moves a live appointment to a new window or amends its notes.
func (s *Service) Reschedule(ctx context.Context, actor authz.Identity, id string, req UpdateAppointmentRequest) (*Appointment, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCompleted || a.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: consulta encerrada não pode ser alterada", shared.ErrValidation)
	}

	if req.StartsAt != nil || req.EndsAt != nil {
		startRaw := a.StartsAt.Format(time.RFC3339)
		endRaw := a.EndsAt.Format(time.RFC3339)
		if req.StartsAt != nil {
			startRaw = *req.StartsAt
		}
		if req.EndsAt != nil {
			endRaw = *req.EndsAt
		}
		startsAt, endsAt, err := s.parseWindow(startRaw, endRaw)
		if err != nil {
			return nil, err
		}
		busy, err := s.store.Overlapping(ctx, a.ProfessionalID, startsAt, endsAt, a.ID)
		if err != nil {
			return nil, err
		}
		if busy {
			return nil, fmt.Errorf("%w: horário indisponível para o profissional", shared.ErrDuplicate)
		}
		a.StartsAt = startsAt
		a.EndsAt = endsAt
	}
	if req.Reason != nil {
		a.Reason = req.Reason
	}
	if req.Notes != nil {
		a.Notes = req.Notes
	}

	if err := s.store.Update(ctx, a); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "APPOINTMENT_RESCHEDULED", a.ID, a.ClinicID, map[string]any{"startsAt": a.StartsAt})
	return a, nil
}

// ChangeStatus moves an appointment through its lifecycle. Terminal states
// reject any further movement.
func (s *Service) ChangeStatus(ctx context.Context, actor authz.Identity, id string, to Status) (*Appointment, error) {
	a, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: transição de %s para %s não permitida", shared.ErrValidation, a.Status, to)
	}
	if err := s.store.SetStatus(ctx, id, to); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "APPOINTMENT_STATUS_CHANGED", id, a.ClinicID, map[string]any{
		"from": string(a.Status),
		"to":   string(to),
	})
	a.Status = to
	return a, nil
}

func (s *Service) parseWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	startsAt, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data de início inválida", shared.ErrValidation)
	}
	endsAt, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data de término inválida", shared.ErrValidation)
	}
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: término deve ser após o início", shared.ErrValidation)
	}
	if startsAt.Before(s.now()) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: não é possível agendar no passado", shared.ErrValidation)
	}
	return startsAt, endsAt, nil
}

func (s *Service) recordAudit(ctx context.Context, actor authz.Identity, action, entityID, clinicID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "APPOINTMENT",
		EntityID: entityID,
		ClinicID: clinicID,
		Meta:     meta,
	})
}

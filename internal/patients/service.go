package patients

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
)

var nameCaser = cases.Title(language.BrazilianPortuguese)

// Service wraps patient business rules.
type Service struct {
	store Store
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(store Store, audit *shared.AuditLogger) *Service {
	return &Service{store: store, audit: audit}
}

// Get fetches a patient record.
func (s *Service) Get(ctx context.Context, id string) (*Patient, error) {
	return s.store.GetByID(ctx, id)
}

// List returns the clinic's patients.
func (s *Service) List(ctx context.Context, req ListPatientsRequest) ([]Patient, error) {
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	return s.store.List(ctx, req)
}

// Create registers a patient in a clinic. The CPF is normalized to digits
// and checked against the mod-11 verification digits before storage.
func (s *Service) Create(ctx context.Context, actor authz.Identity, clinicID string, req CreatePatientRequest) (*Patient, error) {
	cpf := NormalizeCPF(req.CPF)
	if !ValidCPF(cpf) {
		return nil, fmt.Errorf("%w: CPF inválido", shared.ErrValidation)
	}
	birth, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		ID:        uuid.NewString(),
		ClinicID:  clinicID,
		FullName:  nameCaser.String(strings.TrimSpace(req.FullName)),
		CPF:       cpf,
		Phone:     req.Phone,
		Email:     req.Email,
		BirthDate: birth,
		Notes:     req.Notes,
		IsActive:  true,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "PATIENT_CREATED", p.ID, clinicID, nil)
	return p, nil
}

// Update applies partial changes to a patient.
func (s *Service) Update(ctx context.Context, actor authz.Identity, id string, req UpdatePatientRequest) (*Patient, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		p.FullName = nameCaser.String(strings.TrimSpace(*req.FullName))
	}
	if req.Phone != nil {
		p.Phone = req.Phone
	}
	if req.Email != nil {
		p.Email = req.Email
	}
	if req.BirthDate != nil {
		birth, err := parseBirthDate(req.BirthDate)
		if err != nil {
			return nil, err
		}
		p.BirthDate = birth
	}
	if req.Notes != nil {
		p.Notes = req.Notes
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "PATIENT_UPDATED", p.ID, p.ClinicID, nil)
	return p, nil
}

// Delete deactivates a patient. Records stay around for history.
func (s *Service) Delete(ctx context.Context, actor authz.Identity, id string) error {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "PATIENT_DELETED", id, p.ClinicID, nil)
	return nil
}

func parseBirthDate(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, fmt.Errorf("%w: data de nascimento inválida", shared.ErrValidation)
	}
	if t.After(time.Now()) {
		return nil, fmt.Errorf("%w: data de nascimento no futuro", shared.ErrValidation)
	}
	return &t, nil
}

func (s *Service) recordAudit(ctx context.Context, actor authz.Identity, action, entityID, clinicID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "PATIENT",
		EntityID: entityID,
		ClinicID: clinicID,
		Meta:     meta,
	})
}

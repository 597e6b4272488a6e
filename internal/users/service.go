package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// Store abstracts persistence for the service.
type Store interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListByClinic(ctx context.Context, clinicID string) ([]User, error)
	Create(ctx context.Context, user User, passwordHash string) error
	SetRole(ctx context.Context, id string, role authz.Role) error
	SetActive(ctx context.Context, id string, active bool) error
}

// Service wraps staff account business rules.
type Service struct {
	store Store
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(store Store, audit *shared.AuditLogger) *Service {
	return &Service{store: store, audit: audit}
}

// CreateInput carries the fields for a new staff account.
type CreateInput struct {
	Email       string
	DisplayName string
	Role        authz.Role
	ClinicID    string
	Password    string
}

// Get fetches a staff record.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// ListByClinic returns staff accounts of a clinic.
func (s *Service) ListByClinic(ctx context.Context, clinicID string) ([]User, error) {
	return s.store.ListByClinic(ctx, clinicID)
}

// Create registers a staff account. Roles come from the closed set; the
// password is hashed before it ever reaches the repository.
func (s *Service) Create(ctx context.Context, actor authz.Identity, in CreateInput) (*User, error) {
	if !authz.ValidRole(string(in.Role)) {
		return nil, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := User{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName: strings.TrimSpace(in.DisplayName),
		Role:        in.Role,
		ClinicID:    in.ClinicID,
		IsActive:    true,
	}
	if err := s.store.Create(ctx, user, string(hash)); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "USER_CREATED", user.ID, user.ClinicID, map[string]any{"role": string(user.Role)})
	return &user, nil
}

// ChangeRole reassigns a staff account's role.
func (s *Service) ChangeRole(ctx context.Context, actor authz.Identity, id string, role authz.Role) error {
	if !authz.ValidRole(string(role)) {
		return fmt.Errorf("%w: unknown role %q", shared.ErrValidation, role)
	}
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetRole(ctx, id, role); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "USER_ROLE_CHANGED", id, user.ClinicID, map[string]any{
		"from": string(user.Role),
		"to":   string(role),
	})
	return nil
}

// SetActive enables or disables a staff account. Disabling is effective on
// the account's next request: the gate reloads the profile every time.
func (s *Service) SetActive(ctx context.Context, actor authz.Identity, id string, active bool) error {
	if actor.UserID == id && !active {
		return fmt.Errorf("%w: cannot disable own account", shared.ErrValidation)
	}
	user, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "USER_ACTIVE_CHANGED", id, user.ClinicID, map[string]any{"active": active})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor authz.Identity, action, entityID, clinicID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "USER",
		EntityID: entityID,
		ClinicID: clinicID,
		Meta:     meta,
	})
}

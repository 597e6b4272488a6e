package authz

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/salus-crm/salus-crm/internal/platform/httpx"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// Machine-readable gate error codes. These are part of the client contract
// and never change.
const (
	CodeAuthRequired            = "AUTH_REQUIRED"
	CodeProfileNotFound         = "PROFILE_NOT_FOUND"
	CodeAccountDisabled         = "ACCOUNT_DISABLED"
	CodeInsufficientPermissions = "INSUFFICIENT_PERMISSIONS"
	CodeInternal                = "INTERNAL_ERROR"
)

// CodeAuthorized labels successful decisions in metrics; it never appears
// in an error envelope.
const CodeAuthorized = "AUTHORIZED"

// GateError is a terminal authorization failure. Exactly one of
// Identity/GateError comes out of every Authorize call.
type GateError struct {
	Status  int
	Code    string
	Tag     string
	Message string
	Extra   map[string]any
}

// Error implements the error interface.
func (e *GateError) Error() string {
	return e.Code + ": " + e.Message
}

// Write emits the error envelope with the associated status code.
func (e *GateError) Write(w http.ResponseWriter) {
	httpx.Error(w, e.Status, e.Tag, e.Message, e.Code, e.Extra)
}

func errAuthRequired() *GateError {
	return &GateError{
		Status:  http.StatusUnauthorized,
		Code:    CodeAuthRequired,
		Tag:     "unauthorized",
		Message: "Autenticação necessária",
	}
}

func errProfileNotFound() *GateError {
	return &GateError{
		Status:  http.StatusNotFound,
		Code:    CodeProfileNotFound,
		Tag:     "not_found",
		Message: "Perfil do usuário não encontrado",
	}
}

func errAccountDisabled() *GateError {
	return &GateError{
		Status:  http.StatusForbidden,
		Code:    CodeAccountDisabled,
		Tag:     "forbidden",
		Message: "Conta desativada. Entre em contato com o administrador.",
	}
}

func errInsufficientPermissions(required []Permission, role Role) *GateError {
	// The caller already knows their own role; echoing it back with the
	// required list is a deliberate, auditable disclosure.
	reqs := make([]string, len(required))
	for i, p := range required {
		reqs[i] = string(p)
	}
	return &GateError{
		Status:  http.StatusForbidden,
		Code:    CodeInsufficientPermissions,
		Tag:     "forbidden",
		Message: "Permissões insuficientes para esta operação",
		Extra: map[string]any{
			"required": reqs,
			"userRole": string(role),
		},
	}
}

func errInternal() *GateError {
	return &GateError{
		Status:  http.StatusInternalServerError,
		Code:    CodeInternal,
		Tag:     "internal",
		Message: "Erro interno do servidor",
	}
}

// SessionResolver resolves the subject bound to the request's session
// credential. An empty subject means no session.
type SessionResolver interface {
	ResolveSubject(r *http.Request) (string, error)
}

// Gate authorizes inbound requests. It holds no per-request state; a single
// Gate serves arbitrarily many concurrent requests.
type Gate struct {
	sessions  SessionResolver
	profiles  ProfileStore
	ownership OwnershipStore
	logger    *slog.Logger
}

// NewGate constructs a Gate. The ownership store may be nil when the
// resource predicates are not used.
func NewGate(sessions SessionResolver, profiles ProfileStore, ownership OwnershipStore, logger *slog.Logger) *Gate {
	return &Gate{sessions: sessions, profiles: profiles, ownership: ownership, logger: logger}
}

// Authorize runs the gate pipeline: resolve session, load profile, check
// the active flag, then check required permissions. An empty required list
// means a valid session with an active profile is enough. The profile
// store is never consulted without a resolved session.
func (g *Gate) Authorize(r *http.Request, required ...Permission) (Identity, *GateError) {
	subject, err := g.sessions.ResolveSubject(r)
	if err != nil || subject == "" {
		if err != nil && g.logger != nil {
			g.logger.Warn("authz resolve session", slog.Any("error", err))
		}
		return Identity{}, errAuthRequired()
	}

	profile, err := g.profiles.ProfileByID(r.Context(), subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Identity{}, errProfileNotFound()
		}
		if g.logger != nil {
			g.logger.Error("authz load profile", slog.String("subject", subject), slog.Any("error", err))
		}
		return Identity{}, errInternal()
	}

	if !profile.Active {
		return Identity{}, errAccountDisabled()
	}

	if len(required) > 0 && !HasAllPermissions(profile.Role, required) {
		return Identity{}, errInsufficientPermissions(required, profile.Role)
	}

	return Identity{
		UserID:      profile.ID,
		Email:       profile.Email,
		Role:        profile.Role,
		ClinicID:    profile.ClinicID,
		DisplayName: profile.DisplayName,
		Active:      profile.Active,
	}, nil
}

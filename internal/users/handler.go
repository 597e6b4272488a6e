package users

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/platform/httpx"
)

// Handler wires HTTP endpoints for staff administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authzMW authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		authz:     authzMW,
		validator: validator.New(),
	}
}

// MountRoutes registers staff routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermUsersRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermUsersWrite))
		r.Post("/", h.create)
		r.Patch("/{id}/role", h.changeRole)
		r.Patch("/{id}/active", h.setActive)
	})
}

type userResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
	ClinicID    string    `json:"clinicId,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toResponse(u User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
		ClinicID:    u.ClinicID,
		Active:      u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

// requestClinic resolves which clinic the request operates on: callers are
// pinned to their own clinic unless they hold global scope, in which case
// ?clinic_id= selects any clinic.
func requestClinic(identity authz.Identity, r *http.Request) string {
	if identity.Role == authz.GlobalScopeRole {
		if requested := r.URL.Query().Get("clinic_id"); requested != "" {
			return requested
		}
	}
	return identity.ClinicID
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	clinicID := requestClinic(identity, r)
	if clinicID == "" {
		httpx.JSON(w, http.StatusOK, map[string]any{"users": []userResponse{}})
		return
	}

	users, err := h.service.ListByClinic(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toResponse(u))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": out})
}

type createUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,min=2"`
	Role        string `json:"role" validate:"required"`
	ClinicID    string `json:"clinicId"`
	Password    string `json:"password" validate:"required,min=8"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())

	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", err.Error(), "VALIDATION_FAILED", nil)
		return
	}
	if !authz.ValidRole(req.Role) {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Papel desconhecido", "UNKNOWN_ROLE", nil)
		return
	}

	clinicID := req.ClinicID
	if clinicID == "" {
		clinicID = identity.ClinicID
	}
	if !authz.CanAccessTenant(identity, clinicID) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	user, err := h.service.Create(r.Context(), identity, CreateInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        authz.Role(req.Role),
		ClinicID:    clinicID,
		Password:    req.Password,
	})
	if err != nil {
		h.logger.Error("create user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*user))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	user, ok := h.loadScoped(w, r, identity)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*user))
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	user, ok := h.loadScoped(w, r, identity)
	if !ok {
		return
	}

	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if !authz.ValidRole(req.Role) {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Papel desconhecido", "UNKNOWN_ROLE", nil)
		return
	}
	if err := h.service.ChangeRole(r.Context(), identity, user.ID, authz.Role(req.Role)); err != nil {
		h.logger.Error("change role", slog.String("user", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "role": req.Role})
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	user, ok := h.loadScoped(w, r, identity)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || req.Active == nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if err := h.service.SetActive(r.Context(), identity, user.ID, *req.Active); err != nil {
		h.logger.Error("set active", slog.String("user", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": user.ID, "active": *req.Active})
}

// loadScoped fetches the target user and enforces tenant scoping against
// the caller. Writes the error response itself when access is denied.
func (h *Handler) loadScoped(w http.ResponseWriter, r *http.Request, identity authz.Identity) (*User, bool) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return nil, false
	}
	if !authz.CanAccessTenant(identity, user.ClinicID) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return nil, false
	}
	return user, true
}

package clinics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/platform/httpx"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// Handler wires HTTP endpoints for tenant administration.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	audit     *shared.AuditLogger
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, audit *shared.AuditLogger, authzMW authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		repo:      repo,
		audit:     audit,
		authz:     authzMW,
		validator: validator.New(),
	}
}

// MountRoutes registers clinic routes on the provided router. Only the
// administrative roles hold the clinics permissions.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermClinicsRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermClinicsWrite))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
	})
}

type clinicResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	CNPJ      *string `json:"cnpj,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Address   *string `json:"address,omitempty"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"createdAt"`
}

func toResponse(c Clinic) clinicResponse {
	return clinicResponse{
		ID:        c.ID,
		Name:      c.Name,
		CNPJ:      c.CNPJ,
		Phone:     c.Phone,
		Address:   c.Address,
		Active:    c.IsActive,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())

	if identity.Role == authz.GlobalScopeRole {
		list, err := h.repo.List(r.Context())
		if err != nil {
			h.logger.Error("list clinics", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		out := make([]clinicResponse, 0, len(list))
		for _, c := range list {
			out = append(out, toResponse(c))
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"clinics": out})
		return
	}

	// everyone else sees only their own clinic
	if identity.ClinicID == "" {
		httpx.JSON(w, http.StatusOK, map[string]any{"clinics": []clinicResponse{}})
		return
	}
	c, err := h.repo.GetByID(r.Context(), identity.ClinicID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"clinics": []clinicResponse{toResponse(*c)}})
}

type createClinicRequest struct {
	Name    string  `json:"name" validate:"required,min=2"`
	CNPJ    *string `json:"cnpj"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())

	var req createClinicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", err.Error(), "VALIDATION_FAILED", nil)
		return
	}

	c := &Clinic{
		ID:       uuid.NewString(),
		Name:     NormalizeName(req.Name),
		CNPJ:     req.CNPJ,
		Phone:    req.Phone,
		Address:  req.Address,
		IsActive: true,
	}
	if err := h.repo.Create(r.Context(), c); err != nil {
		h.logger.Error("create clinic", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, identity, "CLINIC_CREATED", c.ID)
	httpx.JSON(w, http.StatusCreated, toResponse(*c))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !authz.CanAccessTenant(identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}
	c, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*c))
}

type updateClinicRequest struct {
	Name    *string `json:"name" validate:"omitempty,min=2"`
	CNPJ    *string `json:"cnpj"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Active  *bool   `json:"active"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !authz.CanAccessTenant(identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	var req updateClinicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", err.Error(), "VALIDATION_FAILED", nil)
		return
	}

	c, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.Name != nil {
		c.Name = NormalizeName(*req.Name)
	}
	if req.CNPJ != nil {
		c.CNPJ = req.CNPJ
	}
	if req.Phone != nil {
		c.Phone = req.Phone
	}
	if req.Address != nil {
		c.Address = req.Address
	}
	if req.Active != nil {
		c.IsActive = *req.Active
	}
	if err := h.repo.Update(r.Context(), c); err != nil {
		h.logger.Error("update clinic", slog.String("clinic", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.recordAudit(r, identity, "CLINIC_UPDATED", id)
	httpx.JSON(w, http.StatusOK, toResponse(*c))
}

func (h *Handler) recordAudit(r *http.Request, identity authz.Identity, action, clinicID string) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  identity.UserID,
		Action:   action,
		Entity:   "CLINIC",
		EntityID: clinicID,
		ClinicID: clinicID,
	})
}

package patients

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/platform/httpx"
)

// Handler wires HTTP endpoints for patient records.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      *authz.Gate
	authz     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate *authz.Gate, authzMW authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		gate:      gate,
		authz:     authzMW,
		validator: validator.New(),
	}
}

// MountRoutes registers patient routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermPatientsRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermPatientsWrite))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermPatientsDelete))
		r.Delete("/{id}", h.remove)
	})
}

type patientResponse struct {
	ID        string  `json:"id"`
	ClinicID  string  `json:"clinicId"`
	FullName  string  `json:"fullName"`
	CPF       string  `json:"cpf"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	BirthDate *string `json:"birthDate,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Active    bool    `json:"active"`
	CreatedAt string  `json:"createdAt"`
}

func toResponse(p Patient) patientResponse {
	out := patientResponse{
		ID:        p.ID,
		ClinicID:  p.ClinicID,
		FullName:  p.FullName,
		CPF:       p.CPF,
		Phone:     p.Phone,
		Email:     p.Email,
		Notes:     p.Notes,
		Active:    p.IsActive,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
	if p.BirthDate != nil {
		s := p.BirthDate.Format("2006-01-02")
		out.BirthDate = &s
	}
	return out
}

// requestClinic pins callers to their own clinic unless they hold global
// scope, in which case ?clinic_id= selects any clinic.
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
		httpx.JSON(w, http.StatusOK, map[string]any{"patients": []patientResponse{}})
		return
	}

	req := ListPatientsRequest{ClinicID: clinicID}
	if q := r.URL.Query().Get("q"); q != "" {
		req.Search = &q
	}
	if raw := r.URL.Query().Get("active"); raw != "" {
		active := raw == "true"
		req.IsActive = &active
	}
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	req.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	list, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list patients", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]patientResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"patients": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())

	var req CreatePatientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", err.Error(), "VALIDATION_FAILED", nil)
		return
	}

	clinicID := requestClinic(identity, r)
	if clinicID == "" {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	p, err := h.service.Create(r.Context(), identity, clinicID, req)
	if err != nil {
		h.logger.Error("create patient", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*p))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessPatient(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessPatient(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	var req UpdatePatientRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", err.Error(), "VALIDATION_FAILED", nil)
		return
	}

	p, err := h.service.Update(r.Context(), identity, id, req)
	if err != nil {
		h.logger.Error("update patient", slog.String("patient", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*p))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessPatient(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}
	if err := h.service.Delete(r.Context(), identity, id); err != nil {
		h.logger.Error("delete patient", slog.String("patient", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

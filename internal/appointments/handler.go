package appointments

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

// Handler wires HTTP endpoints for the clinic agenda.
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

// MountRoutes registers agenda routes on the provided router. DELETE
// cancels: records are kept, so cancellation is the only removal. The
// status endpoint can also cancel, with the same delete permission.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermAppointmentsRead))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermAppointmentsWrite))
		r.Post("/", h.create)
		r.Patch("/{id}", h.reschedule)
		r.Patch("/{id}/status", h.changeStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermAppointmentsDelete))
		r.Delete("/{id}", h.cancel)
	})
}

type appointmentResponse struct {
	ID             string  `json:"id"`
	ClinicID       string  `json:"clinicId"`
	PatientID      string  `json:"patientId"`
	ProfessionalID string  `json:"professionalId"`
	StartsAt       string  `json:"startsAt"`
	EndsAt         string  `json:"endsAt"`
	Status         string  `json:"status"`
	Reason         *string `json:"reason,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

func toResponse(a Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID,
		ClinicID:       a.ClinicID,
		PatientID:      a.PatientID,
		ProfessionalID: a.ProfessionalID,
		StartsAt:       a.StartsAt.Format(time.RFC3339),
		EndsAt:         a.EndsAt.Format(time.RFC3339),
		Status:         string(a.Status),
		Reason:         a.Reason,
		Notes:          a.Notes,
	}
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
		httpx.JSON(w, http.StatusOK, map[string]any{"appointments": []appointmentResponse{}})
		return
	}

	req := ListAppointmentsRequest{ClinicID: clinicID}
	q := r.URL.Query()
	if v := q.Get("professional_id"); v != "" {
		req.ProfessionalID = &v
	}
	if v := q.Get("patient_id"); v != "" {
		req.PatientID = &v
	}
	if v := q.Get("status"); v != "" {
		if !ValidStatus(v) {
			httpx.Error(w, http.StatusBadRequest, "bad_request", "Status desconhecido", "UNKNOWN_STATUS", nil)
			return
		}
		st := Status(v)
		req.Status = &st
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			req.From = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			req.To = &t
		}
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	list, err := h.service.List(r.Context(), identity, req)
	if err != nil {
		h.logger.Error("list appointments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"appointments": out})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())

	var req CreateAppointmentRequest
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
	// booking references a patient record, so patient scoping applies too
	if !h.gate.CanAccessPatient(r.Context(), identity, req.PatientID) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	a, err := h.service.Create(r.Context(), identity, clinicID, req)
	if err != nil {
		h.logger.Error("create appointment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*a))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessAppointment(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*a))
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessAppointment(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	var req UpdateAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}

	a, err := h.service.Reschedule(r.Context(), identity, id, req)
	if err != nil {
		h.logger.Error("reschedule appointment", slog.String("appointment", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*a))
}

// cancel moves the appointment to cancelled through the normal lifecycle
// rules; terminal appointments reject it.
func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessAppointment(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}
	if _, err := h.service.ChangeStatus(r.Context(), identity, id, StatusCancelled); err != nil {
		h.logger.Error("cancel appointment", slog.String("appointment", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changeStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !h.gate.CanAccessAppointment(r.Context(), identity, id) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	var req changeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Corpo da requisição inválido", "INVALID_BODY", nil)
		return
	}
	if !ValidStatus(req.Status) {
		httpx.Error(w, http.StatusBadRequest, "bad_request", "Status desconhecido", "UNKNOWN_STATUS", nil)
		return
	}
	if Status(req.Status) == StatusCancelled && !authz.HasPermission(identity.Role, authz.PermAppointmentsDelete) {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", map[string]any{
			"required": []string{string(authz.PermAppointmentsDelete)},
			"userRole": string(identity.Role),
		})
		return
	}

	a, err := h.service.ChangeStatus(r.Context(), identity, id, Status(req.Status))
	if err != nil {
		h.logger.Error("change appointment status", slog.String("appointment", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*a))
}

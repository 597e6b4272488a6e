package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/platform/httpx"
)

// Handler wires HTTP endpoints for reporting.
type Handler struct {
	logger  *slog.Logger
	service *Service
	authz   authz.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authzMW authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, authz: authzMW}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.Require(authz.PermReportsRead))
		r.Get("/dashboard", h.dashboard)
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	identity, _ := authz.IdentityFromContext(r.Context())

	clinicID := identity.ClinicID
	if identity.Role == authz.GlobalScopeRole {
		if requested := r.URL.Query().Get("clinic_id"); requested != "" {
			clinicID = requested
		}
	}
	if clinicID == "" {
		httpx.Error(w, http.StatusForbidden, "forbidden", "Permissões insuficientes para esta operação", "INSUFFICIENT_PERMISSIONS", nil)
		return
	}

	// default window: last 30 days
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			from = t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			to = t
		}
	}

	d, err := h.service.BuildDashboard(r.Context(), clinicID, from, to)
	if err != nil {
		h.logger.Error("build dashboard", slog.String("clinic", clinicID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

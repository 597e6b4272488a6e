package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/salus-crm/salus-crm/internal/appointments"
	"github.com/salus-crm/salus-crm/internal/auth"
	"github.com/salus-crm/salus-crm/internal/clinics"
	"github.com/salus-crm/salus-crm/internal/observability"
	"github.com/salus-crm/salus-crm/internal/patients"
	"github.com/salus-crm/salus-crm/internal/reports"
	"github.com/salus-crm/salus-crm/internal/shared"
	"github.com/salus-crm/salus-crm/internal/users"
	"github.com/salus-crm/salus-crm/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler         *auth.Handler
	UsersHandler        *users.Handler
	PatientsHandler     *patients.Handler
	AppointmentsHandler *appointments.Handler
	ClinicsHandler      *clinics.Handler
	ReportsHandler      *reports.Handler
	JobHandler          *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Salus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/users", params.UsersHandler.MountRoutes)
	r.Route("/patients", params.PatientsHandler.MountRoutes)
	r.Route("/appointments", params.AppointmentsHandler.MountRoutes)
	r.Route("/clinics", params.ClinicsHandler.MountRoutes)
	r.Route("/reports", params.ReportsHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

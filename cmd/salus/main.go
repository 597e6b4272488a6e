package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salus-crm/salus-crm/internal/app"
	"github.com/salus-crm/salus-crm/internal/appointments"
	"github.com/salus-crm/salus-crm/internal/auth"
	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/clinics"
	"github.com/salus-crm/salus-crm/internal/observability"
	"github.com/salus-crm/salus-crm/internal/patients"
	"github.com/salus-crm/salus-crm/internal/platform/cache"
	"github.com/salus-crm/salus-crm/internal/platform/db"
	"github.com/salus-crm/salus-crm/internal/reports"
	"github.com/salus-crm/salus-crm/internal/shared"
	"github.com/salus-crm/salus-crm/internal/users"
	"github.com/salus-crm/salus-crm/jobs"
)

// ownershipStore bridges the patient and appointment repositories into the
// single lookup interface the gate wants.
type ownershipStore struct {
	patients     *patients.Repository
	appointments *appointments.Repository
}

func (s ownershipStore) PatientClinic(ctx context.Context, patientID string) (string, error) {
	return s.patients.ClinicOf(ctx, patientID)
}

func (s ownershipStore) AppointmentOwnership(ctx context.Context, appointmentID string) (authz.Ownership, error) {
	return s.appointments.Ownership(ctx, appointmentID)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "salus_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	patientsRepo := patients.NewRepository(dbpool)
	appointmentsRepo := appointments.NewRepository(dbpool)
	clinicsRepo := clinics.NewRepository(dbpool)

	gate := authz.NewGate(
		auth.SessionSubjectResolver{},
		usersRepo,
		ownershipStore{patients: patientsRepo, appointments: appointmentsRepo},
		logger,
	)
	authzMW := authz.Middleware{Gate: gate, Logger: logger, Metrics: metrics}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, gate)

	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService, authzMW)

	patientsService := patients.NewService(patientsRepo, auditLogger)
	patientsHandler := patients.NewHandler(logger, patientsService, gate, authzMW)

	appointmentsService := appointments.NewService(appointmentsRepo, patientsRepo, auditLogger)
	appointmentsHandler := appointments.NewHandler(logger, appointmentsService, gate, authzMW)

	clinicsHandler := clinics.NewHandler(logger, clinicsRepo, auditLogger, authzMW)

	reportsService := reports.NewService(dbpool)
	reportsHandler := reports.NewHandler(logger, reportsService, authzMW)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		SessionManager:      sessionManager,
		CSRFManager:         csrfManager,
		AuthHandler:         authHandler,
		UsersHandler:        usersHandler,
		PatientsHandler:     patientsHandler,
		AppointmentsHandler: appointmentsHandler,
		ClinicsHandler:      clinicsHandler,
		ReportsHandler:      reportsHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

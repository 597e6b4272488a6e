package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/platform/db"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// Store abstracts appointment persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, req ListAppointmentsRequest) ([]Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	Update(ctx context.Context, a *Appointment) error
	SetStatus(ctx context.Context, id string, status Status) error
	Overlapping(ctx context.Context, professionalID string, startsAt, endsAt time.Time, excludeID string) (bool, error)
	DueForReminder(ctx context.Context, from, to time.Time) ([]ReminderTarget, error)
	Ownership(ctx context.Context, id string) (authz.Ownership, error)
}

// ReminderTarget joins an upcoming appointment with the patient contact
// details the reminder job needs.
type ReminderTarget struct {
	AppointmentID string
	PatientName   string
	PatientEmail  string
	ClinicName    string
	StartsAt      time.Time
}

// Repository is the postgres-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const appointmentColumns = `id, clinic_id, patient_id, professional_id, starts_at, ends_at, status, reason, notes, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClinicID, &a.PatientID, &a.ProfessionalID, &a.StartsAt, &a.EndsAt, &a.Status, &a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// GetByID returns an appointment by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

// List returns clinic appointments matching the filters, soonest first.
func (r *Repository) List(ctx context.Context, req ListAppointmentsRequest) ([]Appointment, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + appointmentColumns + ` FROM appointments WHERE clinic_id = $1`)
	args := []any{req.ClinicID}

	if req.ProfessionalID != nil {
		args = append(args, *req.ProfessionalID)
		fmt.Fprintf(&sb, ` AND professional_id = $%d`, len(args))
	}
	if req.PatientID != nil {
		args = append(args, *req.PatientID)
		fmt.Fprintf(&sb, ` AND patient_id = $%d`, len(args))
	}
	if req.Status != nil {
		args = append(args, string(*req.Status))
		fmt.Fprintf(&sb, ` AND status = $%d`, len(args))
	}
	if req.From != nil {
		args = append(args, *req.From)
		fmt.Fprintf(&sb, ` AND starts_at >= $%d`, len(args))
	}
	if req.To != nil {
		args = append(args, *req.To)
		fmt.Fprintf(&sb, ` AND starts_at < $%d`, len(args))
	}

	sb.WriteString(` ORDER BY starts_at ASC`)
	args = append(args, req.Limit)
	fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	args = append(args, req.Offset)
	fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Create inserts an appointment. The overlap check runs in the same
// transaction as the insert so two concurrent bookings cannot both pass it.
func (r *Repository) Create(ctx context.Context, a *Appointment) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var busy bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM appointments
				WHERE professional_id = $1
				  AND status IN ('scheduled', 'confirmed')
				  AND starts_at < $3 AND ends_at > $2
			)`, a.ProfessionalID, a.StartsAt, a.EndsAt).Scan(&busy)
		if err != nil {
			return err
		}
		if busy {
			return shared.ErrDuplicate
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (id, clinic_id, patient_id, professional_id, starts_at, ends_at, status, reason, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
			a.ID, a.ClinicID, a.PatientID, a.ProfessionalID, a.StartsAt, a.EndsAt, string(a.Status), a.Reason, a.Notes,
		)
		return err
	})
}

// Update persists reschedulable appointment fields.
func (r *Repository) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET starts_at = $2, ends_at = $3, reason = $4, notes = $5, updated_at = now()
		WHERE id = $1`,
		a.ID, a.StartsAt, a.EndsAt, a.Reason, a.Notes,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetStatus moves an appointment to a new status.
func (r *Repository) SetStatus(ctx context.Context, id string, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Overlapping reports whether the professional already has a live booking
// intersecting the given window.
func (r *Repository) Overlapping(ctx context.Context, professionalID string, startsAt, endsAt time.Time, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE professional_id = $1
			  AND status IN ('scheduled', 'confirmed')
			  AND starts_at < $3 AND ends_at > $2
			  AND id <> $4
		)`, professionalID, startsAt, endsAt, excludeID).Scan(&exists)
	return exists, err
}

// DueForReminder returns confirmed or scheduled appointments starting in the
// window, with patient contact data. Patients without an email are skipped.
func (r *Repository) DueForReminder(ctx context.Context, from, to time.Time) ([]ReminderTarget, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, p.full_name, p.email, c.name, a.starts_at
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		JOIN clinics c ON c.id = a.clinic_id
		WHERE a.status IN ('scheduled', 'confirmed')
		  AND a.starts_at >= $1 AND a.starts_at < $2
		  AND p.email IS NOT NULL`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ReminderTarget, 0)
	for rows.Next() {
		var t ReminderTarget
		if err := rows.Scan(&t.AppointmentID, &t.PatientName, &t.PatientEmail, &t.ClinicName, &t.StartsAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Ownership resolves the owning clinic and assigned professional.
func (r *Repository) Ownership(ctx context.Context, id string) (authz.Ownership, error) {
	var o authz.Ownership
	err := r.pool.QueryRow(ctx, `SELECT clinic_id, professional_id FROM appointments WHERE id = $1`, id).Scan(&o.ClinicID, &o.ProfessionalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Ownership{}, shared.ErrNotFound
		}
		return authz.Ownership{}, err
	}
	return o, nil
}

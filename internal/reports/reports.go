// Package reports produces clinic dashboards aggregated from the
// operational tables.
package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the headline view of a clinic over a period.
type Dashboard struct {
	ClinicID              string           `json:"clinicId"`
	From                  time.Time        `json:"from"`
	To                    time.Time        `json:"to"`
	ActivePatients        int64            `json:"activePatients"`
	NewPatients           int64            `json:"newPatients"`
	AppointmentsByStatus  map[string]int64 `json:"appointmentsByStatus"`
	AppointmentsCompleted int64            `json:"appointmentsCompleted"`
	CancellationRate      float64          `json:"cancellationRate"`
}

// Service aggregates the dashboard numbers.
type Service struct {
	pool *pgxpool.Pool
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// BuildDashboard runs the aggregate queries concurrently. Any query error
// cancels the rest and fails the dashboard as a whole.
func (s *Service) BuildDashboard(ctx context.Context, clinicID string, from, to time.Time) (*Dashboard, error) {
	d := &Dashboard{
		ClinicID:             clinicID,
		From:                 from,
		To:                   to,
		AppointmentsByStatus: map[string]int64{},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.pool.QueryRow(ctx,
			`SELECT count(*) FROM patients WHERE clinic_id = $1 AND is_active`,
			clinicID).Scan(&d.ActivePatients)
	})

	g.Go(func() error {
		return s.pool.QueryRow(ctx,
			`SELECT count(*) FROM patients WHERE clinic_id = $1 AND created_at >= $2 AND created_at < $3`,
			clinicID, from, to).Scan(&d.NewPatients)
	})

	byStatus := map[string]int64{}
	g.Go(func() error {
		rows, err := s.pool.Query(ctx,
			`SELECT status, count(*) FROM appointments
			 WHERE clinic_id = $1 AND starts_at >= $2 AND starts_at < $3
			 GROUP BY status`,
			clinicID, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int64
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			byStatus[status] = n
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.AppointmentsByStatus = byStatus
	d.AppointmentsCompleted = byStatus["completed"]

	var total int64
	for _, n := range byStatus {
		total += n
	}
	if total > 0 {
		d.CancellationRate = float64(byStatus["cancelled"]) / float64(total)
	}
	return d, nil
}

package patients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salus-crm/salus-crm/internal/shared"
)

// Store abstracts patient persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context, req ListPatientsRequest) ([]Patient, error)
	Create(ctx context.Context, p *Patient) error
	Update(ctx context.Context, p *Patient) error
	SoftDelete(ctx context.Context, id string) error
	ClinicOf(ctx context.Context, id string) (string, error)
}

// Repository is the postgres-backed Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, clinic_id, full_name, cpf, phone, email, birth_date, notes, is_active, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var birth pgtype.Date
	err := row.Scan(&p.ID, &p.ClinicID, &p.FullName, &p.CPF, &p.Phone, &p.Email, &birth, &p.Notes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if birth.Valid {
		t := birth.Time
		p.BirthDate = &t
	}
	return &p, nil
}

// GetByID returns a patient by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

// List returns clinic patients matching the filters, newest first.
func (r *Repository) List(ctx context.Context, req ListPatientsRequest) ([]Patient, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + patientColumns + ` FROM patients WHERE clinic_id = $1`)
	args := []any{req.ClinicID}

	if req.Search != nil && *req.Search != "" {
		args = append(args, "%"+*req.Search+"%")
		fmt.Fprintf(&sb, ` AND (full_name ILIKE $%d OR cpf LIKE $%d)`, len(args), len(args))
	}
	if req.IsActive != nil {
		args = append(args, *req.IsActive)
		fmt.Fprintf(&sb, ` AND is_active = $%d`, len(args))
	}

	sb.WriteString(` ORDER BY created_at DESC`)
	args = append(args, req.Limit)
	fmt.Fprintf(&sb, ` LIMIT $%d`, len(args))
	args = append(args, req.Offset)
	fmt.Fprintf(&sb, ` OFFSET $%d`, len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Create inserts a patient. A CPF already registered in the same clinic
// surfaces as shared.ErrDuplicate.
func (r *Repository) Create(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, clinic_id, full_name, cpf, phone, email, birth_date, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())`,
		p.ID, p.ClinicID, p.FullName, p.CPF, p.Phone, p.Email, p.BirthDate, p.Notes, p.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return shared.ErrDuplicate
		}
		return err
	}
	return nil
}

// Update persists mutable patient fields.
func (r *Repository) Update(ctx context.Context, p *Patient) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE patients
		SET full_name = $2, phone = $3, email = $4, birth_date = $5, notes = $6, is_active = $7, updated_at = now()
		WHERE id = $1`,
		p.ID, p.FullName, p.Phone, p.Email, p.BirthDate, p.Notes, p.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete deactivates a patient without removing the record.
func (r *Repository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE patients SET is_active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ClinicOf reports which clinic a patient belongs to.
func (r *Repository) ClinicOf(ctx context.Context, id string) (string, error) {
	var clinicID string
	err := r.pool.QueryRow(ctx, `SELECT clinic_id FROM patients WHERE id = $1`, id).Scan(&clinicID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return clinicID, nil
}

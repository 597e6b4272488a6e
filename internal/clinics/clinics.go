// Package clinics manages the tenant registry. Clinics are the scoping
// unit for every other record in the system.
package clinics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salus-crm/salus-crm/internal/shared"
)

// Clinic is a tenant.
type Clinic struct {
	ID        string
	Name      string
	CNPJ      *string
	Phone     *string
	Address   *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the postgres-backed clinic store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clinicColumns = `id, name, cnpj, phone, address, is_active, created_at, updated_at`

func scanClinic(row pgx.Row) (*Clinic, error) {
	var c Clinic
	err := row.Scan(&c.ID, &c.Name, &c.CNPJ, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// GetByID returns a clinic by id.
func (r *Repository) GetByID(ctx context.Context, id string) (*Clinic, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clinicColumns+` FROM clinics WHERE id = $1`, id)
	return scanClinic(row)
}

// List returns all clinics, name order.
func (r *Repository) List(ctx context.Context) ([]Clinic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clinicColumns+` FROM clinics ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Clinic, 0)
	for rows.Next() {
		c, err := scanClinic(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Create inserts a clinic.
func (r *Repository) Create(ctx context.Context, c *Clinic) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO clinics (id, name, cnpj, phone, address, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
		c.ID, c.Name, c.CNPJ, c.Phone, c.Address, c.IsActive,
	)
	return err
}

// Update persists mutable clinic fields.
func (r *Repository) Update(ctx context.Context, c *Clinic) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE clinics
		SET name = $2, cnpj = $3, phone = $4, address = $5, is_active = $6, updated_at = now()
		WHERE id = $1`,
		c.ID, c.Name, c.CNPJ, c.Phone, c.Address, c.IsActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// NormalizeName trims and collapses interior whitespace of a clinic name.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salus-crm/salus-crm/internal/authz"
	"github.com/salus-crm/salus-crm/internal/shared"
)

// Repository provides PostgreSQL backed persistence for staff accounts.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProfileByID loads the profile fields the authorization gate needs. This
// is the live read the gate performs on every request; there is no cache
// in front of it.
func (r *Repository) ProfileByID(ctx context.Context, id string) (authz.Profile, error) {
	var (
		profile  authz.Profile
		clinicID pgtype.Text
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, role, clinic_id, display_name, is_active FROM users WHERE id = $1`,
		id,
	).Scan(&profile.ID, &profile.Email, &profile.Role, &clinicID, &profile.DisplayName, &profile.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Profile{}, shared.ErrNotFound
		}
		return authz.Profile{}, err
	}
	profile.ClinicID = clinicID.String
	return profile, nil
}

// GetByID fetches a full staff record.
func (r *Repository) GetByID(ctx context.Context, id string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, role, clinic_id, is_active, created_at, updated_at FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// ListByClinic returns staff accounts of a clinic ordered by name.
func (r *Repository) ListByClinic(ctx context.Context, clinicID string) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, display_name, role, clinic_id, is_active, created_at, updated_at
		 FROM users WHERE clinic_id = $1 ORDER BY display_name`,
		clinicID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// Create inserts a staff account with a pre-hashed password.
func (r *Repository) Create(ctx context.Context, user User, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, role, clinic_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NOW(), NOW())`,
		user.ID, user.Email, passwordHash, user.DisplayName, user.Role, user.ClinicID, user.IsActive,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

// SetRole reassigns a staff account's role.
func (r *Repository) SetRole(ctx context.Context, id string, role authz.Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`,
		id, role,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive flips the active flag. A disabled account is rejected by the
// gate on its next request; existing sessions are not purged.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user     User
		clinicID pgtype.Text
	)
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role, &clinicID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.ClinicID = clinicID.String
	return &user, nil
}

var _ authz.ProfileStore = (*Repository)(nil)

package auth

import (
	"time"

	"github.com/salus-crm/salus-crm/internal/authz"
)

// User represents an authenticatable staff account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         authz.Role
	ClinicID     string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package users

import (
	"time"

	"github.com/salus-crm/salus-crm/internal/authz"
)

// User represents a staff account scoped to a clinic.
type User struct {
	ID          string
	Email       string
	DisplayName string
	Role        authz.Role
	ClinicID    string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

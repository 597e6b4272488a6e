// Package authz implements role-based authorization for the clinic CRM:
// a static role-to-permission matrix, the request gate that resolves the
// caller's profile and enforces required permissions, and the tenant
// scoping predicates. Every decision is fail-closed.
package authz

import "context"

// Role is a fixed label assigned to a staff user. The set is closed;
// roles are assigned by administrators and never change at runtime.
type Role string

const (
	RoleSuperAdmin    Role = "super_admin"
	RoleAdmin         Role = "admin"
	RoleMedico        Role = "medico"
	RoleEnfermeiro    Role = "enfermeiro"
	RoleRecepcionista Role = "recepcionista"
	RoleAssistente    Role = "assistente"
)

// Permission is a resource:action capability tag. The set is closed and
// known at compile time.
type Permission string

const (
	PermPatientsRead       Permission = "patients:read"
	PermPatientsWrite      Permission = "patients:write"
	PermPatientsDelete     Permission = "patients:delete"
	PermAppointmentsRead   Permission = "appointments:read"
	PermAppointmentsWrite  Permission = "appointments:write"
	PermAppointmentsDelete Permission = "appointments:delete"
	PermClinicsRead        Permission = "clinics:read"
	PermClinicsWrite       Permission = "clinics:write"
	PermUsersRead          Permission = "users:read"
	PermUsersWrite         Permission = "users:write"
	PermReportsRead        Permission = "reports:read"
)

// Roles lists every known role.
func Roles() []Role {
	return []Role{
		RoleSuperAdmin,
		RoleAdmin,
		RoleMedico,
		RoleEnfermeiro,
		RoleRecepcionista,
		RoleAssistente,
	}
}

// Permissions lists every known permission.
func Permissions() []Permission {
	return []Permission{
		PermPatientsRead,
		PermPatientsWrite,
		PermPatientsDelete,
		PermAppointmentsRead,
		PermAppointmentsWrite,
		PermAppointmentsDelete,
		PermClinicsRead,
		PermClinicsWrite,
		PermUsersRead,
		PermUsersWrite,
		PermReportsRead,
	}
}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	for _, r := range Roles() {
		if Role(s) == r {
			return true
		}
	}
	return false
}

// Profile is the per-user record the gate loads from the profile store.
// Exactly these fields; nothing is cached between requests.
type Profile struct {
	ID          string
	Email       string
	Role        Role
	ClinicID    string
	DisplayName string
	Active      bool
}

// Identity is the resolved caller of an authorized request. It is built
// once per gate evaluation and discarded with the request.
type Identity struct {
	UserID      string
	Email       string
	Role        Role
	ClinicID    string
	DisplayName string
	Active      bool
}

// ProfileStore loads staff profiles by user id. Implementations return
// shared.ErrNotFound (wrapped or not) when the profile is missing.
type ProfileStore interface {
	ProfileByID(ctx context.Context, id string) (Profile, error)
}

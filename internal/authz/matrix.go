package authz

// rolePermissions is the static role-to-permission matrix. Each role's set
// is listed explicitly; there is no inheritance between roles. The matrix
// is built once at package init and never mutated, so concurrent reads are
// safe without locking.
var rolePermissions = map[Role]map[Permission]struct{}{
	RoleSuperAdmin: permSet(
		PermPatientsRead, PermPatientsWrite, PermPatientsDelete,
		PermAppointmentsRead, PermAppointmentsWrite, PermAppointmentsDelete,
		PermClinicsRead, PermClinicsWrite,
		PermUsersRead, PermUsersWrite,
		PermReportsRead,
	),
	RoleAdmin: permSet(
		PermPatientsRead, PermPatientsWrite, PermPatientsDelete,
		PermAppointmentsRead, PermAppointmentsWrite, PermAppointmentsDelete,
		PermClinicsRead, PermClinicsWrite,
		PermUsersRead, PermUsersWrite,
		PermReportsRead,
	),
	RoleMedico: permSet(
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
		PermReportsRead,
	),
	RoleEnfermeiro: permSet(
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
	),
	RoleRecepcionista: permSet(
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite, PermAppointmentsDelete,
	),
	RoleAssistente: permSet(
		PermPatientsRead,
		PermAppointmentsRead,
	),
}

func permSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// HasPermission reports whether the role's set contains the permission.
// Unknown roles have no permissions.
func HasPermission(role Role, perm Permission) bool {
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[perm]
	return ok
}

// HasAnyPermission reports whether at least one of the permissions is
// granted. An empty input list is false: "any of nothing" grants nothing.
func HasAnyPermission(role Role, perms []Permission) bool {
	for _, p := range perms {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every permission in the list is
// granted. An empty input list is true: the gate relies on this to mean
// "authenticated only, no specific permission required".
func HasAllPermissions(role Role, perms []Permission) bool {
	for _, p := range perms {
		if !HasPermission(role, p) {
			return false
		}
	}
	return true
}

// PermissionsFor returns a copy of the role's permission set. Mutating the
// returned slice does not affect the matrix.
func PermissionsFor(role Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	perms := make([]Permission, 0, len(set))
	for _, p := range Permissions() {
		if _, granted := set[p]; granted {
			perms = append(perms, p)
		}
	}
	return perms
}

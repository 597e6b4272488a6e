package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var expectedMatrix = map[Role][]Permission{
	RoleSuperAdmin: {
		PermPatientsRead, PermPatientsWrite, PermPatientsDelete,
		PermAppointmentsRead, PermAppointmentsWrite, PermAppointmentsDelete,
		PermClinicsRead, PermClinicsWrite,
		PermUsersRead, PermUsersWrite,
		PermReportsRead,
	},
	RoleAdmin: {
		PermPatientsRead, PermPatientsWrite, PermPatientsDelete,
		PermAppointmentsRead, PermAppointmentsWrite, PermAppointmentsDelete,
		PermClinicsRead, PermClinicsWrite,
		PermUsersRead, PermUsersWrite,
		PermReportsRead,
	},
	RoleMedico: {
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
		PermReportsRead,
	},
	RoleEnfermeiro: {
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite,
	},
	RoleRecepcionista: {
		PermPatientsRead, PermPatientsWrite,
		PermAppointmentsRead, PermAppointmentsWrite, PermAppointmentsDelete,
	},
	RoleAssistente: {
		PermPatientsRead,
		PermAppointmentsRead,
	},
}

func TestMatrixFidelity(t *testing.T) {
	for role, expected := range expectedMatrix {
		granted := make(map[Permission]bool, len(expected))
		for _, p := range expected {
			granted[p] = true
		}
		for _, p := range Permissions() {
			assert.Equalf(t, granted[p], HasPermission(role, p), "role=%s perm=%s", role, p)
		}
	}
}

func TestMatrixCoversEveryRole(t *testing.T) {
	for _, role := range Roles() {
		require.NotEmptyf(t, PermissionsFor(role), "role %s must map to a non-empty set", role)
	}
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	for _, p := range Permissions() {
		assert.False(t, HasPermission(Role("faxineiro"), p))
	}
	assert.False(t, HasAnyPermission(Role(""), Permissions()))
}

func TestVacuousAnyIsFalse(t *testing.T) {
	for _, role := range Roles() {
		assert.Falsef(t, HasAnyPermission(role, nil), "any([]) must be false for %s", role)
		assert.Falsef(t, HasAnyPermission(role, []Permission{}), "any([]) must be false for %s", role)
	}
}

func TestVacuousAllIsTrue(t *testing.T) {
	for _, role := range Roles() {
		assert.Truef(t, HasAllPermissions(role, nil), "all([]) must be true for %s", role)
		assert.Truef(t, HasAllPermissions(role, []Permission{}), "all([]) must be true for %s", role)
	}
}

func TestHasAllMatchesPointwiseCheck(t *testing.T) {
	lists := [][]Permission{
		{PermPatientsWrite},
		{PermPatientsRead, PermAppointmentsRead},
		{PermPatientsWrite, PermClinicsWrite},
		{PermReportsRead, PermUsersWrite, PermPatientsDelete},
		Permissions(),
	}
	for _, role := range Roles() {
		for _, perms := range lists {
			pointwise := true
			for _, p := range perms {
				if !HasPermission(role, p) {
					pointwise = false
					break
				}
			}
			assert.Equalf(t, pointwise, HasAllPermissions(role, perms), "role=%s perms=%v", role, perms)
		}
	}
}

func TestReceptionistWritesPatientsAssistantDoesNot(t *testing.T) {
	assert.True(t, HasPermission(RoleRecepcionista, PermPatientsWrite))
	assert.False(t, HasPermission(RoleAssistente, PermPatientsWrite))
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleAssistente)
	require.Len(t, perms, 2)
	perms[0] = PermClinicsWrite
	assert.False(t, HasPermission(RoleAssistente, PermClinicsWrite))
}

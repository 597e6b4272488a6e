package authz

import (
	"context"
	"log/slog"
)

// GlobalScopeRole is the one role whose data access is not confined to a
// single clinic. super_admin manages the platform but still operates
// through its own clinic affiliation for record access.
const GlobalScopeRole = RoleAdmin

// Ownership describes who a resource belongs to.
type Ownership struct {
	ClinicID       string
	ProfessionalID string
}

// OwnershipStore resolves the owning clinic (and, for appointments, the
// assigned professional) of a resource.
type OwnershipStore interface {
	PatientClinic(ctx context.Context, patientID string) (string, error)
	AppointmentOwnership(ctx context.Context, appointmentID string) (Ownership, error)
}

// CanAccessTenant reports whether the identity may act on the given
// clinic's data. Pure and total: the global-scope role passes regardless of
// affiliation, everyone else needs an exact clinic match. An empty target
// never matches.
func CanAccessTenant(identity Identity, clinicID string) bool {
	if identity.Role == GlobalScopeRole {
		return true
	}
	return clinicID != "" && identity.ClinicID == clinicID
}

// CanAccessPatient reports whether the identity may act on the patient's
// record. Lookup failures deny access.
func (g *Gate) CanAccessPatient(ctx context.Context, identity Identity, patientID string) bool {
	if g.ownership == nil {
		return false
	}
	clinicID, err := g.ownership.PatientClinic(ctx, patientID)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("authz patient lookup", slog.String("patient", patientID), slog.Any("error", err))
		}
		return false
	}
	return CanAccessTenant(identity, clinicID)
}

// CanAccessAppointment reports whether the identity may act on the
// appointment. On top of tenant scoping, the medico role is restricted to
// appointments assigned to it. Lookup failures deny access.
func (g *Gate) CanAccessAppointment(ctx context.Context, identity Identity, appointmentID string) bool {
	if g.ownership == nil {
		return false
	}
	owner, err := g.ownership.AppointmentOwnership(ctx, appointmentID)
	if err != nil {
		if g.logger != nil {
			g.logger.Warn("authz appointment lookup", slog.String("appointment", appointmentID), slog.Any("error", err))
		}
		return false
	}
	if !CanAccessTenant(identity, owner.ClinicID) {
		return false
	}
	if identity.Role == RoleMedico && owner.ProfessionalID != identity.UserID {
		return false
	}
	return true
}

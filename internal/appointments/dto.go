package appointments

import "time"

// CreateAppointmentRequest carries input for booking an appointment.
type CreateAppointmentRequest struct {
	PatientID      string  `json:"patientId" validate:"required,uuid4"`
	ProfessionalID string  `json:"professionalId" validate:"required,uuid4"`
	StartsAt       string  `json:"startsAt" validate:"required"`
	EndsAt         string  `json:"endsAt" validate:"required"`
	Reason         *string `json:"reason"`
}

// UpdateAppointmentRequest carries partial updates; nil fields are untouched.
type UpdateAppointmentRequest struct {
	StartsAt *string `json:"startsAt"`
	EndsAt   *string `json:"endsAt"`
	Reason   *string `json:"reason"`
	Notes    *string `json:"notes"`
}

// ListAppointmentsRequest carries list filters.
type ListAppointmentsRequest struct {
	ClinicID       string
	ProfessionalID *string
	PatientID      *string
	Status         *Status
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

package appointments

import (
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions maps each status to the statuses reachable from it.
// Completed and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ValidStatus reports whether s is a known status.
func ValidStatus(s string) bool {
	_, ok := transitions[Status(s)]
	return ok
}

// CanTransition reports whether the move from one status to another is
// allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Appointment is a booked slot between a patient and a professional.
type Appointment struct {
	ID             string
	ClinicID       string
	PatientID      string
	ProfessionalID string
	StartsAt       time.Time
	EndsAt         time.Time
	Status         Status
	Reason         *string
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

package patients

import "time"

// Patient is a person treated by a clinic. CPF is stored as its 11
// normalized digits; formatting is a client concern.
type Patient struct {
	ID        string
	ClinicID  string
	FullName  string
	CPF       string
	Phone     *string
	Email     *string
	BirthDate *time.Time
	Notes     *string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

package patients

// CreatePatientRequest carries input for registering a patient.
type CreatePatientRequest struct {
	FullName  string  `json:"fullName" validate:"required,min=3"`
	CPF       string  `json:"cpf" validate:"required"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email" validate:"omitempty,email"`
	BirthDate *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes"`
}

// UpdatePatientRequest carries partial updates; nil fields are untouched.
type UpdatePatientRequest struct {
	FullName  *string `json:"fullName" validate:"omitempty,min=3"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email" validate:"omitempty,email"`
	BirthDate *string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Notes     *string `json:"notes"`
	IsActive  *bool   `json:"active"`
}

// ListPatientsRequest carries list filters.
type ListPatientsRequest struct {
	ClinicID string
	Search   *string
	IsActive *bool
	Limit    int
	Offset   int
}

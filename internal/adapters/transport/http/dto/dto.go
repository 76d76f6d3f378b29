package dto

type RegisterDTO struct {
	Email      string `json:"email"       validate:"required,email,max=254"`
	Password   string `json:"password"    validate:"required,min=6,max=128"`
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
}

type LoginDTO struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateDTO carries an account update. Absent and empty fields are kept.
type UpdateDTO struct {
	Email      *string `json:"email,omitempty"       validate:"omitempty,email,max=254"`
	Password   *string `json:"password,omitempty"    validate:"omitempty,min=6,max=128"`
	EmployeeID *string `json:"employee_id,omitempty" validate:"omitempty,uuid"`
}

// Request bodies wrap the payload in a "user" object.

type RegisterRequest struct {
	User RegisterDTO `json:"user"`
}

type LoginRequest struct {
	User LoginDTO `json:"user"`
}

type UpdateRequest struct {
	User UpdateDTO `json:"user"`
}

type TokenBody struct {
	Token string `json:"token"`
}

type TokenResponse struct {
	User TokenBody `json:"user"`
}

type ProfileBody struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type ProfileResponse struct {
	User ProfileBody `json:"user"`
}

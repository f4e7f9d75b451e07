package validation

import (
	"strings"

	"auth-gateway/internal/domain"
)

// RegisterInput is the registration request body.
type RegisterInput struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	PhoneNumber     string `json:"phone_number"`
	Age             *int   `json:"age"`
	Status          string `json:"status"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Registration validates a registration request. Field errors are reported
// before the password confirmation is compared.
func Registration(in RegisterInput) (domain.Registration, error) {
	for _, f := range []*string{&in.Username, &in.Email, &in.FirstName, &in.LastName, &in.PhoneNumber, &in.Status} {
		*f = strings.TrimSpace(*f)
	}

	if err := check(in); err != nil {
		return domain.Registration{}, err
	}
	if in.Password != in.PasswordConfirm {
		return domain.Registration{}, newError("password", msgPasswordMismatch)
	}

	return domain.Registration{
		Username:    in.Username,
		Password:    in.Password,
		Email:       in.Email,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		PhoneNumber: in.PhoneNumber,
		Age:         in.Age,
		Status:      in.Status,
	}, nil
}

// Login checks presence only; correctness is decided by the identity backend.
func Login(in LoginInput) (domain.Credentials, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := check(in); err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{Username: in.Username, Password: in.Password}, nil
}

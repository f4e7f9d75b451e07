package http

import (
	"time"

	"auth-gateway/internal/domain"
)

type UserResponse struct {
	ID          int64   `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Age         *int    `json:"age"`
	PhoneNumber *string `json:"phone_number"`
	Status      string  `json:"status"`
}

type ProfileResponse struct {
	UserResponse
	DateRegistered *string `json:"date_registered,omitempty"`
}

func userToResponse(user *domain.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Age:       user.Age,
		Status:    user.Status,
	}
	if user.PhoneNumber != "" {
		v := user.PhoneNumber
		resp.PhoneNumber = &v
	}
	return resp
}

func profileToResponse(user *domain.User) ProfileResponse {
	resp := ProfileResponse{UserResponse: userToResponse(user)}
	if user.DateRegistered != nil && !user.DateRegistered.IsZero() {
		v := user.DateRegistered.Format(time.RFC3339)
		resp.DateRegistered = &v
	}
	return resp
}

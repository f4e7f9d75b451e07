package service

import (
	"context"
	"errors"
	"fmt"

	"auth-gateway/internal/domain"
)

var (
	// ErrInvalidCredentials never distinguishes an unknown user from a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrDuplicateUser is returned when registering an existing username.
	ErrDuplicateUser = errors.New("a user with that username already exists")
	// ErrUserNotFound is returned when an authenticated principal has no record.
	ErrUserNotFound = errors.New("user not found")
	// ErrBackendUnavailable marks transient identity store failures.
	ErrBackendUnavailable = errors.New("identity service unavailable")
)

// BackendRejectedError is a non-success answer from the identity store.
// Detail holds the upstream error payload, decoded as any JSON value, when it
// could be parsed.
type BackendRejectedError struct {
	Status int
	Detail any
}

func (e *BackendRejectedError) Error() string {
	obj, _ := e.Detail.(map[string]any)
	if msg, ok := obj["detail"].(string); ok {
		return fmt.Sprintf("identity service rejected request (status %d): %s", e.Status, msg)
	}
	return fmt.Sprintf("identity service rejected request (status %d)", e.Status)
}

// IdentityBackend authenticates, creates and loads identities. The local
// variant owns the user table; the remote variant relays to an identity store.
type IdentityBackend interface {
	CreateAccount(ctx context.Context, reg domain.Registration) (*domain.User, error)
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	FetchProfile(ctx context.Context, principal domain.Principal) (*domain.User, error)
}

// sanitizeUser drops the password hash before a user leaves the backend.
func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	out := *user
	out.PasswordHash = ""
	return &out
}

package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/repository"
	"auth-gateway/internal/validation"
)

type localBackend struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewLocalBackend stores users in the given repository. A zero cost means
// bcrypt.DefaultCost.
func NewLocalBackend(users repository.UserRepository, bcryptCost int) IdentityBackend {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &localBackend{
		users:      users,
		bcryptCost: bcryptCost,
	}
}

func (s *localBackend) CreateAccount(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, &validation.Error{Fields: map[string]string{"password": "ensure this field has no more than 72 bytes"}}
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     reg.Username,
		PasswordHash: string(hash),
		Email:        reg.Email,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PhoneNumber:  reg.PhoneNumber,
		Age:          reg.Age,
		Status:       reg.Status,
	}

	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrDuplicateUser
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *localBackend) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

// FetchProfile trusts the principal established by token verification.
func (s *localBackend) FetchProfile(ctx context.Context, principal domain.Principal) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return sanitizeUser(user), nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"auth-gateway/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// RevokedToken is a single entry of the refresh token blacklist.
type RevokedToken struct {
	JTI       string
	UserID    int64
	ExpiresAt time.Time
	RevokedAt time.Time
}

// RevocationRepository is the append-only set of blacklisted refresh tokens.
// Insert must fail with ErrAlreadyExists when the identifier is already present.
type RevocationRepository interface {
	Init(ctx context.Context) error
	Insert(ctx context.Context, token RevokedToken) error
	Exists(ctx context.Context, jti string) (bool, error)
}

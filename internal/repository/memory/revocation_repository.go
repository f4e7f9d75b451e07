package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auth-gateway/internal/repository"
)

type RevocationRepository struct {
	mu      sync.RWMutex
	revoked map[string]repository.RevokedToken
}

func NewRevocationRepository() *RevocationRepository {
	return &RevocationRepository{revoked: make(map[string]repository.RevokedToken)}
}

func (r *RevocationRepository) Init(context.Context) error { return nil }

func (r *RevocationRepository) Insert(_ context.Context, token repository.RevokedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.revoked[token.JTI]; ok {
		return fmt.Errorf("blacklist token: %w", repository.ErrAlreadyExists)
	}
	if token.RevokedAt.IsZero() {
		token.RevokedAt = time.Now()
	}
	r.revoked[token.JTI] = token
	return nil
}

func (r *RevocationRepository) Exists(_ context.Context, jti string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.revoked[jti]
	return ok, nil
}

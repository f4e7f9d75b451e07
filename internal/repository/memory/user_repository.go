// Package memory holds process-local repository implementations guarded by
// mutexes. State is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/repository"
)

type UserRepository struct {
	mu         sync.RWMutex
	nextID     int64
	byID       map[int64]domain.User
	byUsername map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[int64]domain.User),
		byUsername: make(map[string]int64),
	}
}

func (r *UserRepository) Init(context.Context) error { return nil }

func (r *UserRepository) Create(_ context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byUsername[user.Username]; taken {
		return 0, fmt.Errorf("insert user %q: %w", user.Username, repository.ErrAlreadyExists)
	}

	r.nextID++
	user.ID = r.nextID
	if user.DateRegistered == nil {
		now := time.Now().UTC()
		user.DateRegistered = &now
	}

	r.byID[user.ID] = cloneUser(*user)
	r.byUsername[user.Username] = user.ID
	return user.ID, nil
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user := cloneUser(r.byID[id])
	return &user, nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	user = cloneUser(user)
	return &user, nil
}

// cloneUser copies pointer fields so callers cannot mutate stored state.
func cloneUser(u domain.User) domain.User {
	if u.Age != nil {
		age := *u.Age
		u.Age = &age
	}
	if u.DateRegistered != nil {
		t := *u.DateRegistered
		u.DateRegistered = &t
	}
	return u
}

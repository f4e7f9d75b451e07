package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "gateway.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Init(ctx), "init is idempotent")

	age := 40
	user := &domain.User{
		Username:     "alice",
		PasswordHash: "hash",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		PhoneNumber:  "+100",
		Age:          &age,
		Status:       "here",
	}
	id, err := repo.Create(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	require.NotNil(t, user.DateRegistered)

	byName, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, byName.ID)
	assert.Equal(t, "hash", byName.PasswordHash)
	assert.Equal(t, "Alice", byName.FirstName)
	require.NotNil(t, byName.Age)
	assert.Equal(t, 40, *byName.Age)
	require.NotNil(t, byName.DateRegistered)
	assert.WithinDuration(t, *user.DateRegistered, *byName.DateRegistered, time.Second)

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	noAge, err := repo.Create(ctx, &domain.User{Username: "bob", PasswordHash: "h"})
	require.NoError(t, err)
	bob, err := repo.GetByID(ctx, noAge)
	require.NoError(t, err)
	assert.Nil(t, bob.Age)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	_, err := repo.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	_, err := repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "a"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.User{Username: "alice", PasswordHash: "b"})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestRevocationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRevocationRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	ok, err := repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	entry := repository.RevokedToken{JTI: "jti-1", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, repo.Insert(ctx, entry))

	ok, err = repo.Exists(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, repo.Insert(ctx, entry), repository.ErrAlreadyExists)
}

func TestRevocationRepository_ConcurrentInsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRevocationRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Insert(ctx, repository.RevokedToken{JTI: "same", UserID: 1, ExpiresAt: time.Now()})
			if err == nil {
				success.Add(1)
				return
			}
			assert.ErrorIs(t, err, repository.ErrAlreadyExists)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), success.Load())
}

func TestUserRepository_DBErrors(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewUserRepository(db)

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+users\b`).
		WillReturnError(errors.New("disk full"))
	_, err = repo.Create(context.Background(), &domain.User{Username: "alice"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrAlreadyExists)
	assert.Regexp(t, regexp.MustCompile(`insert user: .*disk full`), err.Error())

	mock.ExpectQuery(`(?s)^\s*SELECT\s+.*FROM\s+users\s+WHERE\s+username\s*=\s*\?`).
		WithArgs("alice").
		WillReturnError(errors.New("db down"))
	_, err = repo.GetByUsername(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevocationRepository_DBErrors(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewRevocationRepository(db)

	mock.ExpectQuery(`(?s)^\s*SELECT\s+COUNT\(1\)\s+FROM\s+token_blacklist`).
		WithArgs("jti").
		WillReturnError(errors.New("db down"))
	_, err = repo.Exists(context.Background(), "jti")
	assert.Regexp(t, `lookup blacklisted token: .*db down`, err.Error())

	mock.ExpectExec(`(?s)^\s*INSERT\s+INTO\s+token_blacklist\b`).
		WithArgs("jti", int64(3), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(errors.New("locked"))
	err = repo.Insert(context.Background(), repository.RevokedToken{JTI: "jti", UserID: 3})
	require.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

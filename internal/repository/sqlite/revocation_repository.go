package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auth-gateway/internal/repository"
)

const createBlacklistTable = `
CREATE TABLE IF NOT EXISTS token_blacklist (
	jti TEXT PRIMARY KEY,
	user_id INTEGER NOT NULL,
	expires_at DATETIME NOT NULL,
	blacklisted_at DATETIME NOT NULL
);
`

// RevocationRepository keeps blacklisted refresh token identifiers.
type RevocationRepository struct {
	db *sql.DB
}

func NewRevocationRepository(db *sql.DB) repository.RevocationRepository {
	return &RevocationRepository{db: db}
}

func (r *RevocationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createBlacklistTable); err != nil {
		return fmt.Errorf("create token_blacklist table: %w", err)
	}
	return nil
}

func (r *RevocationRepository) Insert(ctx context.Context, token repository.RevokedToken) error {
	revokedAt := token.RevokedAt
	if revokedAt.IsZero() {
		revokedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO token_blacklist (jti, user_id, expires_at, blacklisted_at)
VALUES (?, ?, ?, ?)`,
		token.JTI,
		token.UserID,
		token.ExpiresAt.UTC(),
		revokedAt.UTC(),
	)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("blacklist token: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (r *RevocationRepository) Exists(ctx context.Context, jti string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `
SELECT COUNT(1)
FROM token_blacklist
WHERE jti = ?`,
		jti,
	).Scan(&n); err != nil {
		return false, fmt.Errorf("lookup blacklisted token: %w", err)
	}
	return n > 0, nil
}

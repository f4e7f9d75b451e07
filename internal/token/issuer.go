// Package token issues, verifies and revokes the gateway's JWT pairs.
//
// Access tokens are stateless and expire by claim. Refresh tokens carry a jti
// that is checked against the revocation repository on every use.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/repository"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

var (
	// ErrInvalidToken is returned for any token that must not be honored.
	// The more specific errors below always wrap it.
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrRevokedToken = fmt.Errorf("%w: revoked", ErrInvalidToken)
	ErrWrongType    = fmt.Errorf("%w: wrong token type", ErrInvalidToken)
)

// Claims are embedded in both access and refresh tokens.
type Claims struct {
	TokenType string `json:"token_type"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	jwt.RegisteredClaims
}

// Options configure an Issuer. Zero TTLs fall back to the defaults.
type Options struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

type Issuer struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	revoked    repository.RevocationRepository
}

func NewIssuer(opts Options, revoked repository.RevocationRepository) *Issuer {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = DefaultAccessTTL
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = DefaultRefreshTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Issuer{
		secret:     []byte(opts.Secret),
		issuer:     opts.Issuer,
		accessTTL:  opts.AccessTTL,
		refreshTTL: opts.RefreshTTL,
		now:        opts.Now,
		revoked:    revoked,
	}
}

// Issue signs a new access/refresh pair for the given identity.
func (i *Issuer) Issue(user *domain.User) (domain.TokenPair, error) {
	if user == nil {
		return domain.TokenPair{}, errors.New("issue tokens: nil user")
	}

	access, err := i.sign(TypeAccess, user.ID, user.Username, i.accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := i.sign(TypeRefresh, user.ID, user.Username, i.refreshTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccess verifies an access token. Access tokens are never revoked.
func (i *Issuer) ParseAccess(tokenString string) (*Claims, error) {
	return i.parse(tokenString, TypeAccess)
}

// ParseRefresh verifies a refresh token and rejects blacklisted ones.
func (i *Issuer) ParseRefresh(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := i.parse(tokenString, TypeRefresh)
	if err != nil {
		return nil, err
	}

	revoked, err := i.revoked.Exists(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := i.ParseRefresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return i.sign(TypeAccess, claims.UserID, claims.Username, i.accessTTL)
}

// Revoke blacklists a refresh token. Revoking the same token twice fails
// with ErrRevokedToken.
func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := i.parse(refreshToken, TypeRefresh)
	if err != nil {
		return err
	}

	entry := repository.RevokedToken{
		JTI:       claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: i.now(),
	}
	if err := i.revoked.Insert(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return ErrRevokedToken
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (i *Issuer) sign(tokenType string, userID int64, username string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		TokenType: tokenType,
		UserID:    userID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

func (i *Issuer) parse(tokenString, wantType string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &Claims{}
	token, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrWrongType
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	return claims, nil
}

package token

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auth-gateway/internal/domain"
	"auth-gateway/internal/repository/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestIssuer(t *testing.T) (*Issuer, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	issuer := NewIssuer(Options{
		Secret:     "test-secret",
		Issuer:     "auth-gateway",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		Now:        c.Now,
	}, memory.NewRevocationRepository())
	return issuer, c
}

var alice = &domain.User{ID: 42, Username: "alice"}

func TestIssue_EmbedsIdentity(t *testing.T) {
	issuer, c := newTestIssuer(t)

	pair, err := issuer.Issue(alice)
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)
	require.NotEqual(t, pair.Access, pair.Refresh)

	access, err := issuer.ParseAccess(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, int64(42), access.UserID)
	assert.Equal(t, "alice", access.Username)
	assert.Equal(t, "42", access.Subject)
	assert.Equal(t, TypeAccess, access.TokenType)
	assert.Equal(t, c.Now().Add(time.Minute).Unix(), access.ExpiresAt.Unix())

	refresh, err := issuer.ParseRefresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, refresh.TokenType)
	assert.NotEmpty(t, refresh.ID)
	assert.Equal(t, c.Now().Add(time.Hour).Unix(), refresh.ExpiresAt.Unix())
}

func TestIssue_NilUser(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	_, err := issuer.Issue(nil)
	require.Error(t, err)
}

func TestParse_RejectsWrongType(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	pair, err := issuer.Issue(alice)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.Refresh)
	require.ErrorIs(t, err, ErrWrongType)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseRefresh(context.Background(), pair.Access)
	require.ErrorIs(t, err, ErrWrongType)
}

func TestParse_RejectsExpired(t *testing.T) {
	issuer, c := newTestIssuer(t)
	pair, err := issuer.Issue(alice)
	require.NoError(t, err)

	c.Advance(2 * time.Minute)
	_, err = issuer.ParseAccess(pair.Access)
	require.ErrorIs(t, err, ErrExpiredToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseRefresh(context.Background(), pair.Refresh)
	require.NoError(t, err)

	c.Advance(time.Hour)
	require.ErrorIs(t, issuer.Revoke(context.Background(), pair.Refresh), ErrExpiredToken)
}

func TestParse_RejectsForeignSignature(t *testing.T) {
	issuer, c := newTestIssuer(t)
	other := NewIssuer(Options{Secret: "other", Issuer: "auth-gateway", Now: c.Now}, memory.NewRevocationRepository())

	pair, err := other.Issue(alice)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(pair.Access)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_RejectsOtherAlgorithms(t *testing.T) {
	issuer, c := newTestIssuer(t)
	claims := Claims{
		TokenType: TypeAccess,
		UserID:    1,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "x",
			Issuer:    "auth-gateway",
			ExpiresAt: jwt.NewNumericDate(c.Now().Add(time.Minute)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.ParseAccess(unsigned)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_Malformed(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	for _, tok := range []string{"", "not.a.jwt", "garbage"} {
		_, err := issuer.ParseAccess(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
		assert.ErrorIs(t, issuer.Revoke(context.Background(), tok), ErrInvalidToken, tok)
	}
}

func TestRevoke_Twice(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()
	pair, err := issuer.Issue(alice)
	require.NoError(t, err)

	require.NoError(t, issuer.Revoke(ctx, pair.Refresh))
	require.ErrorIs(t, issuer.Revoke(ctx, pair.Refresh), ErrRevokedToken)
}

func TestRevoke_BlocksRefresh(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	ctx := context.Background()
	pair, err := issuer.Issue(alice)
	require.NoError(t, err)

	access, err := issuer.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	claims, err := issuer.ParseAccess(access)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID)

	require.NoError(t, issuer.Revoke(ctx, pair.Refresh))

	_, err = issuer.Refresh(ctx, pair.Refresh)
	require.ErrorIs(t, err, ErrRevokedToken)
	_, err = issuer.ParseRefresh(ctx, pair.Refresh)
	require.ErrorIs(t, err, ErrRevokedToken)

	// access tokens are stateless and stay valid until expiry
	_, err = issuer.ParseAccess(pair.Access)
	require.NoError(t, err)
}

func TestRevoke_RejectsAccessToken(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	pair, err := issuer.Issue(alice)
	require.NoError(t, err)
	require.ErrorIs(t, issuer.Revoke(context.Background(), pair.Access), ErrWrongType)
}

func TestRevoke_ConcurrentExactlyOnce(t *testing.T) {
	issuer, _ := newTestIssuer(t)
	pair, err := issuer.Issue(alice)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if issuer.Revoke(context.Background(), pair.Refresh) == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), successes.Load())
}

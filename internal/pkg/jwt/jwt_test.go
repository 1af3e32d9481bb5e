package jwt

import (
	"testing"
	"time"

	"foodlink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newSigner() (*Signer, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}
	return NewSigner("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour, clock.Now), clock
}

func TestSigner_Access(t *testing.T) {
	signer, _ := newSigner()

	token, err := signer.Access(Identity{UserID: 7, Email: "ngo@example.org", Username: "foodbank", Role: domain.RoleNGO})
	require.NoError(t, err)

	claims, err := signer.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ngo@example.org", claims.Email)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, domain.Actor{UserID: 7, Role: domain.RoleNGO}, claims.Actor())
}

func TestSigner_AccessRejects(t *testing.T) {
	signer, clock := newSigner()
	token, err := signer.Access(Identity{UserID: 7, Role: domain.RoleDonor})
	require.NoError(t, err)

	other := NewSigner("other-secret", "refresh-secret", time.Minute, time.Hour, clock.Now)
	_, err = other.ParseAccess(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = signer.ParseAccess("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	unknownRole, err := signer.Access(Identity{UserID: 7, Role: domain.Role("admin")})
	require.NoError(t, err)
	_, err = signer.ParseAccess(unknownRole)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	clock.now = clock.now.Add(16 * time.Minute)
	_, err = signer.ParseAccess(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSigner_Refresh(t *testing.T) {
	signer, clock := newSigner()

	token, expiresAt, err := signer.Refresh(3)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), expiresAt)

	claims, err := signer.ParseRefresh(token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.NotEmpty(t, claims.TokenID())

	second, _, err := signer.Refresh(3)
	require.NoError(t, err)
	assert.NotEqual(t, token, second)

	// a refresh token never passes as an access token, even with shared secrets
	shared := NewSigner("same", "same", time.Hour, time.Hour, clock.Now)
	refresh, _, err := shared.Refresh(3)
	require.NoError(t, err)
	_, err = shared.ParseAccess(refresh)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	clock.now = clock.now.Add(8 * 24 * time.Hour)
	_, err = signer.ParseRefresh(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

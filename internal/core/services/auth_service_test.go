package services

import (
	"context"
	"testing"
	"time"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"
	"foodlink/internal/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAuth(t *testing.T) (*AuthService, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	clock := func() time.Time { return env.now }
	tokens := jwt.NewSigner("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour, clock)
	return NewAuthService(env.users, env.refreshTokens, tokens, clock, zap.NewNop()), env
}

func donorRegistration() *RegisterInput {
	return &RegisterInput{
		Username:        " Alice ",
		Email:           "Alice@Example.com",
		Password:        "hunter22",
		ConfirmPassword: "hunter22",
		Role:            "DONOR",
		FullName:        "Alice Baker",
		City:            "Springfield",
	}
}

func TestAuthService_Register(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	resp, err := auth.Register(ctx, donorRegistration())
	require.NoError(t, err)

	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "alice@example.com", resp.User.Email)
	assert.Equal(t, string(domain.RoleDonor), resp.User.Role)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := auth.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, domain.RoleDonor, claims.Role)

	_, err = auth.Register(ctx, donorRegistration())
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)

	dup := donorRegistration()
	dup.Username = "alice2"
	_, err = auth.Register(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.ErrorIs(t, err, domain.ErrDuplicateEntry)
}

func TestAuthService_RegisterNGO(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	in := donorRegistration()
	in.Role = "ngo"
	_, err := auth.Register(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = donorRegistration()
	in.Role = "ngo"
	in.OrganizationName = "Food Rescue"
	in.RegistrationNumber = "FR-001"
	resp, err := auth.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "Food Rescue", resp.User.DisplayName)
	assert.Equal(t, "FR-001", resp.User.RegistrationNumber)
}

func TestRegisterInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *RegisterInput)
	}{
		{"short username", func(in *RegisterInput) { in.Username = "al" }},
		{"bad email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }},
		{"mismatched confirmation", func(in *RegisterInput) { in.ConfirmPassword = "hunter23" }},
		{"admin role", func(in *RegisterInput) { in.Role = "admin" }},
		{"short full name", func(in *RegisterInput) { in.FullName = "A" }},
		{"long phone", func(in *RegisterInput) { in.Phone = "+1 555 0100 0200 0300 0400" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := donorRegistration()
			tt.mutate(in)
			assert.ErrorIs(t, in.Validate(), domain.ErrInvalidInput)
		})
	}

	assert.NoError(t, donorRegistration().Validate())
}

func TestAuthService_Login(t *testing.T) {
	auth, env := newTestAuth(t)
	ctx := context.Background()

	resp, err := auth.Login(ctx, &LoginInput{Email: " DONOR1@example.com ", Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, env.donor.ID, resp.User.ID)

	_, err = auth.Login(ctx, &LoginInput{Email: "donor1@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = auth.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	require.NoError(t, env.users.Deactivate(ctx, env.donor.ID))
	_, err = auth.Login(ctx, &LoginInput{Email: "donor1@example.com", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrUserInactive)

	// an inactive account still hides behind bad credentials
	_, err = auth.Login(ctx, &LoginInput{Email: "donor1@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthService_RefreshTokenRotation(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	login, err := auth.Login(ctx, &LoginInput{Email: "ngo1@example.com", Password: testPassword})
	require.NoError(t, err)

	rotated, err := auth.RefreshToken(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)
	assert.Equal(t, login.User.ID, rotated.User.ID)

	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = auth.RefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, auth.Logout(ctx, rotated.RefreshToken))
	_, err = auth.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_RefreshTokenExpiredByClock(t *testing.T) {
	auth, env := newTestAuth(t)
	ctx := context.Background()

	login, err := auth.Login(ctx, &LoginInput{Email: "ngo1@example.com", Password: testPassword})
	require.NoError(t, err)

	env.now = env.now.AddDate(0, 0, 8)
	_, err = auth.RefreshToken(ctx, login.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthService_LogoutAll(t *testing.T) {
	auth, env := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.Login(ctx, &LoginInput{Email: "donor1@example.com", Password: testPassword})
	require.NoError(t, err)
	second, err := auth.Login(ctx, &LoginInput{Email: "donor1@example.com", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, auth.LogoutAll(ctx, env.donor.ID))

	for _, token := range []string{first.RefreshToken, second.RefreshToken} {
		_, err := auth.RefreshToken(ctx, token)
		assert.ErrorIs(t, err, ErrTokenRevoked)
	}
}

func TestAuthService_PurgeExpiredTokens(t *testing.T) {
	auth, env := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.Login(ctx, &LoginInput{Email: "donor1@example.com", Password: testPassword})
	require.NoError(t, err)

	require.NoError(t, auth.PurgeExpiredTokens(ctx))
	var count int64
	require.NoError(t, env.db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	env.now = env.now.AddDate(0, 0, 8)
	require.NoError(t, auth.PurgeExpiredTokens(ctx))
	require.NoError(t, env.db.Model(&models.RefreshToken{}).Count(&count).Error)
	assert.Zero(t, count)
}

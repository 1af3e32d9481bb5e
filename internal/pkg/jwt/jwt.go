package jwt

import (
	"errors"
	"time"

	"foodlink/internal/core/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is stamped on every token this service signs
const Issuer = "foodlink"

// Audiences keep access and refresh tokens apart even when both secrets match
const (
	audienceAccess  = "foodlink:access"
	audienceRefresh = "foodlink:refresh"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Claims identify the caller of an API request
type Claims struct {
	UserID   uint        `json:"user_id"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the identity the engines authorize against
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{UserID: c.UserID, Role: c.Role}
}

// RefreshClaims identify one stored refresh token
type RefreshClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenID is the unique id of the refresh token
func (c *RefreshClaims) TokenID() string {
	return c.ID
}

// Identity is what an access token carries
type Identity struct {
	UserID   uint
	Email    string
	Username string
	Role     domain.Role
}

// Signer issues and verifies tokens. Validity windows follow the injected
// clock so tokens age with the rest of the engine.
type Signer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewSigner creates a signer; now defaults to time.Now
func NewSigner(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, now func() time.Time) *Signer {
	if now == nil {
		now = time.Now
	}
	return &Signer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           now,
	}
}

// AccessTTL is how long an access token stays valid
func (s *Signer) AccessTTL() time.Duration { return s.accessTTL }

// Access signs an access token for id
func (s *Signer) Access(id Identity) (string, error) {
	claims := Claims{
		UserID:           id.UserID,
		Email:            id.Email,
		Username:         id.Username,
		Role:             id.Role,
		RegisteredClaims: s.registered(audienceAccess, id.Username, s.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
}

// Refresh signs a refresh token with a fresh token id and returns its expiry
func (s *Signer) Refresh(userID uint) (string, time.Time, error) {
	registered := s.registered(audienceRefresh, "", s.refreshTTL)
	registered.ID = uuid.NewString()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		UserID:           userID,
		RegisteredClaims: registered,
	}).SignedString(s.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, registered.ExpiresAt.Time, nil
}

// ParseAccess verifies an access token. Tokens carrying an unknown role are
// rejected.
func (s *Signer) ParseAccess(token string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(token, claims, s.accessSecret, audienceAccess); err != nil {
		return nil, err
	}
	if !claims.Role.IsValid() {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token
func (s *Signer) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(token, claims, s.refreshSecret, audienceRefresh); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *Signer) registered(audience, subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{audience},
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
}

func (s *Signer) parse(token string, claims jwt.Claims, secret []byte, audience string) error {
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

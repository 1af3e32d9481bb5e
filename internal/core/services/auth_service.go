package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
	"foodlink/internal/pkg/jwt"
	"foodlink/internal/pkg/password"

	"go.uber.org/zap"
)

// Token errors
var (
	ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	ErrTokenExpired = fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
	ErrTokenRevoked = fmt.Errorf("%w: token revoked", domain.ErrUnauthenticated)
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	tokens           *jwt.Signer
	clock            expiry.Clock
	log              *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	tokens *jwt.Signer,
	clock expiry.Clock,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		tokens:           tokens,
		clock:            clock,
		log:              log,
	}
}

// RegisterInput represents registration input
type RegisterInput struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	Password           string `json:"password"`
	ConfirmPassword    string `json:"confirm_password"`
	Role               string `json:"role"`
	FullName           string `json:"full_name"`
	Phone              string `json:"phone"`
	Address            string `json:"address"`
	City               string `json:"city"`
	OrganizationName   string `json:"organization_name"`
	RegistrationNumber string `json:"registration_number"`
}

// Validate normalizes and checks the registration form
func (in *RegisterInput) Validate() error {
	in.Username = strings.ToLower(strings.TrimSpace(in.Username))
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	in.City = strings.TrimSpace(in.City)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	in.RegistrationNumber = strings.TrimSpace(in.RegistrationNumber)

	if err := checkLength("username", in.Username, 3, 20); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(in.Email); err != nil || !strings.Contains(in.Email, "@") {
		return domain.InvalidInput("please enter a valid email address")
	}
	if !password.ValidatePassword(in.Password) {
		return domain.InvalidInput("password must be at least %d characters long", password.MinLength)
	}
	if in.ConfirmPassword != in.Password {
		return domain.InvalidInput("passwords must match")
	}
	if !domain.Role(in.Role).IsValid() {
		return domain.InvalidInput("role must be donor or ngo")
	}
	if err := checkLength("full name", in.FullName, 2, 100); err != nil {
		return err
	}
	return validateProfileFields(domain.Role(in.Role), in.Phone, in.Address, in.City, in.OrganizationName, in.RegistrationNumber)
}

// validateProfileFields applies the optional field limits; NGOs must name
// their organization and registration number
func validateProfileFields(role domain.Role, phone, address, city, orgName, regNumber string) error {
	switch {
	case utf8.RuneCountInString(phone) > 20:
		return domain.InvalidInput("phone number cannot exceed 20 characters")
	case utf8.RuneCountInString(address) > 500:
		return domain.InvalidInput("address cannot exceed 500 characters")
	case utf8.RuneCountInString(city) > 50:
		return domain.InvalidInput("city name cannot exceed 50 characters")
	case utf8.RuneCountInString(orgName) > 100:
		return domain.InvalidInput("organization name cannot exceed 100 characters")
	case utf8.RuneCountInString(regNumber) > 50:
		return domain.InvalidInput("registration number cannot exceed 50 characters")
	}

	if role == domain.RoleNGO {
		if orgName == "" {
			return domain.InvalidInput("organization name is required for NGOs")
		}
		if regNumber == "" {
			return domain.InvalidInput("registration number is required for NGOs")
		}
	}
	return nil
}

// LoginInput represents login input
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Register registers a new donor or NGO account
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	// 1. Validate form
	if err := input.Validate(); err != nil {
		return nil, err
	}

	// 2. Check if username already exists
	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: username is already taken", domain.ErrUserAlreadyExists)
	}

	// 3. Check if email already exists
	exists, err = s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: email is already registered", domain.ErrUserAlreadyExists)
	}

	// 4. Hash password
	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 5. Create user
	user := &models.User{
		Username: input.Username,
		Email:    input.Email,
		Password: hashedPassword,
		Role:     input.Role,
		FullName: input.FullName,
		Phone:    input.Phone,
		Address:  input.Address,
		City:     input.City,
		IsActive: true,
	}
	if user.IsNGO() {
		user.OrganizationName = input.OrganizationName
		user.RegistrationNumber = input.RegistrationNumber
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, err
	}

	// 6. Issue tokens
	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	return resp, nil
}

// Login authenticates a user by email and password
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(input.Email))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Verify password
	if !password.Verify(input.Password, user.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	// 3. Check if user is active
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info("user logged in", zap.Uint("user_id", user.ID))
	return resp, nil
}

// RefreshToken rotates the refresh token and issues a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	// 1. Validate refresh token JWT
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	// 2. Find the stored token
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}

	now := s.clock()
	if storedToken.IsExpired(now) {
		return nil, ErrTokenExpired
	}

	// 3. Get user
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	// 4. Revoke old refresh token (Token Rotation)
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID, now); err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken), s.clock())
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID, s.clock()); err != nil {
		return err
	}
	s.log.Info("all sessions revoked", zap.Uint("user_id", userID))
	return nil
}

// PurgeExpiredTokens removes refresh tokens past their expiry
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) error {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx, s.clock())
	if err != nil {
		return err
	}
	if n > 0 {
		s.log.Info("expired refresh tokens purged", zap.Int64("count", n))
	}
	return nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return s.tokens.ParseAccess(accessToken)
}

// issue signs a token pair, stores the refresh token and builds the response
func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	accessToken, err := s.tokens.Access(jwt.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     domain.Role(user.Role),
	})
	if err != nil {
		return nil, err
	}

	refreshToken, expiresAt, err := s.tokens.Refresh(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

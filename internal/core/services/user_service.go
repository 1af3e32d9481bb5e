package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/expiry"
	"foodlink/internal/pkg/password"

	"go.uber.org/zap"
)

// User service errors
var (
	ErrOldPasswordWrong = fmt.Errorf("%w: old password is incorrect", domain.ErrInvalidInput)
)

// UserService handles profile management
type UserService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	clock            expiry.Clock
	log              *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	clock expiry.Clock,
	log *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		clock:            clock,
		log:              log,
	}
}

// UpdateProfileInput represents update profile input (for self).
// Nil fields are left unchanged.
type UpdateProfileInput struct {
	Email              *string `json:"email"`
	FullName           *string `json:"full_name"`
	Phone              *string `json:"phone"`
	Address            *string `json:"address"`
	City               *string `json:"city"`
	OrganizationName   *string `json:"organization_name"`
	RegistrationNumber *string `json:"registration_number"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword     string `json:"old_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// GetProfile gets own profile
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.ToResponse(), nil
}

// UpdateProfile updates own profile
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.UserResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != user.Email {
			if _, err := mail.ParseAddress(email); err != nil {
				return nil, domain.InvalidInput("please enter a valid email address")
			}
			exists, err := s.userRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, fmt.Errorf("%w: email is already registered", domain.ErrUserAlreadyExists)
			}
			user.Email = email
		}
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&user.FullName, input.FullName)
	apply(&user.Phone, input.Phone)
	apply(&user.Address, input.Address)
	apply(&user.City, input.City)
	if user.IsNGO() {
		apply(&user.OrganizationName, input.OrganizationName)
		apply(&user.RegistrationNumber, input.RegistrationNumber)
	}

	if err := checkLength("full name", user.FullName, 2, 100); err != nil {
		return nil, err
	}
	if err := validateProfileFields(domain.Role(user.Role), user.Phone, user.Address, user.City, user.OrganizationName, user.RegistrationNumber); err != nil {
		return nil, err
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if repositories.IsDuplicateKey(err) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, err
	}

	return user.ToResponse(), nil
}

// ChangePassword changes user's password and signs out every other session
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	// Verify old password
	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}

	// Validate new password
	if !password.ValidatePassword(input.NewPassword) {
		return domain.InvalidInput("new password must be at least %d characters long", password.MinLength)
	}
	if input.ConfirmPassword != input.NewPassword {
		return domain.InvalidInput("passwords must match")
	}

	hashedPassword, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}

	user.Password = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	return s.refreshTokenRepo.RevokeAllByUserID(ctx, userID, s.clock())
}

// Deactivate disables the account and revokes its sessions
func (s *UserService) Deactivate(ctx context.Context, userID uint) error {
	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.Deactivate(ctx, userID); err != nil {
		return err
	}
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID, s.clock()); err != nil {
		return err
	}

	s.log.Info("account deactivated", zap.Uint("user_id", userID))
	return nil
}

func (s *UserService) getUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

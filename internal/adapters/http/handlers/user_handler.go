package handlers

import (
	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/core/services"
	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UserHandler handles the caller's own profile
type UserHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		log:         log,
	}
}

// GetProfile gets own profile
// @Summary Get my profile
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /profile [get]
func (h *UserHandler) GetProfile(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	user, err := h.userService.GetProfile(c.Context(), actor.UserID)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to get profile")
	}

	return response.Success(c, "Profile retrieved successfully", user)
}

// UpdateProfile updates own profile
// @Summary Update my profile
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateProfileInput true "Profile fields to change"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /profile [put]
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateProfile(c.Context(), actor.UserID, &input)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to update profile")
	}

	return response.Success(c, "Profile updated successfully", user)
}

// ChangePassword changes own password
// @Summary Change my password
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.ChangePasswordInput true "Old and new password"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /profile/password [put]
func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.ChangePasswordInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.userService.ChangePassword(c.Context(), actor.UserID, &input); err != nil {
		return response.FromError(c, h.log, err, "Failed to change password")
	}

	return response.Success(c, "Password changed successfully, please login again on other devices", nil)
}

// Deactivate disables own account
// @Summary Deactivate my account
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /profile [delete]
func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	if err := h.userService.Deactivate(c.Context(), actor.UserID); err != nil {
		return response.FromError(c, h.log, err, "Failed to deactivate account")
	}

	c.ClearCookie("access_token", "refresh_token")
	return response.Success(c, "Account deactivated", nil)
}

package handlers

import (
	"strconv"
	"strings"

	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/adapters/persistence/repositories"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/services"
	"foodlink/internal/pkg/pagination"
	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DonationHandler handles donation endpoints
type DonationHandler struct {
	donationService *services.DonationService
	log             *zap.Logger
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(donationService *services.DonationService, log *zap.Logger) *DonationHandler {
	return &DonationHandler{
		donationService: donationService,
		log:             log,
	}
}

// ============================================================
// Public browse
// ============================================================

// ListAvailable lists donations that can be claimed
// @Summary Browse available donations
// @Description Available donations not past their expiry date, soonest expiry first
// @Tags Donations
// @Produce json
// @Param city query string false "City (substring, case-insensitive)"
// @Param category_id query int false "Category ID"
// @Param q query string false "Search title and description"
// @Param dietary_info query string false "Dietary label"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /donations [get]
func (h *DonationHandler) ListAvailable(c *fiber.Ctx) error {
	params := pagination.FromQuery(c)

	filter := repositories.DonationFilter{
		City:        strings.TrimSpace(c.Query("city")),
		Search:      strings.TrimSpace(c.Query("q")),
		DietaryInfo: strings.ToLower(strings.TrimSpace(c.Query("dietary_info"))),
	}
	if raw := c.Query("category_id"); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return response.BadRequest(c, "Invalid category ID")
		}
		filter.CategoryID = uint(categoryID)
	}

	donations, total, err := h.donationService.ListAvailable(c.Context(), filter, params.Offset(), params.Limit)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to list donations")
	}

	return pagination.Send(c, "Donations retrieved successfully", params, donations, total, h.render)
}

// Get gets a donation by ID
// @Summary Get donation
// @Tags Donations
// @Produce json
// @Param id path int true "Donation ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /donations/{id} [get]
func (h *DonationHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid donation ID")
	}

	donation, err := h.donationService.GetByID(c.Context(), id)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to get donation")
	}

	return response.Success(c, "Donation retrieved successfully", h.render(donation))
}

// ============================================================
// Donor
// ============================================================

// ListMine lists the caller's donations
// @Summary My donations
// @Tags Donations
// @Produce json
// @Security BearerAuth
// @Param status query string false "available, claimed, completed or expired"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /donations/mine [get]
func (h *DonationHandler) ListMine(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.FromQuery(c)
	status := domain.DonationStatus(strings.ToLower(c.Query("status")))

	donations, total, err := h.donationService.ListByDonor(c.Context(), actor, status, params.Offset(), params.Limit)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to list donations")
	}

	return pagination.Send(c, "Donations retrieved successfully", params, donations, total, h.render)
}

// Create creates a donation
// @Summary Create donation
// @Tags Donations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.DonationInput true "Donation"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /donations [post]
func (h *DonationHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var input services.DonationInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	donation, err := h.donationService.Create(c.Context(), actor, &input)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to create donation")
	}

	return response.Created(c, "Donation created successfully", h.render(donation))
}

// Update edits an available donation
// @Summary Update donation
// @Tags Donations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Donation ID"
// @Param body body services.DonationInput true "Donation"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /donations/{id} [put]
func (h *DonationHandler) Update(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid donation ID")
	}

	var input services.DonationInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	donation, err := h.donationService.Update(c.Context(), actor, id, &input)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to update donation")
	}

	return response.Success(c, "Donation updated successfully", h.render(donation))
}

// Delete removes an available donation
// @Summary Delete donation
// @Tags Donations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Donation ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /donations/{id} [delete]
func (h *DonationHandler) Delete(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid donation ID")
	}

	if err := h.donationService.Delete(c.Context(), actor, id); err != nil {
		return response.FromError(c, h.log, err, "Failed to delete donation")
	}

	return response.Success(c, "Donation deleted successfully", nil)
}

func (h *DonationHandler) render(d *models.FoodDonation) *models.DonationResponse {
	return d.ToResponse(h.donationService.Now())
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

package handlers

import (
	"context"
	"strings"
	"time"

	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/adapters/persistence/models"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/services"
	"foodlink/internal/pkg/pagination"
	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ClaimHandler handles claim endpoints
type ClaimHandler struct {
	claimService *services.ClaimService
	log          *zap.Logger
}

// NewClaimHandler creates a new claim handler
func NewClaimHandler(claimService *services.ClaimService, log *zap.Logger) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		log:          log,
	}
}

// ClaimRequest represents claim request body
type ClaimRequest struct {
	Notes string `json:"notes"`
}

// ScheduleRequest represents schedule pickup request body
type ScheduleRequest struct {
	PickupScheduledAt string `json:"pickup_scheduled_at"` // RFC 3339
	Notes             string `json:"notes"`
}

// CancelRequest represents cancel claim request body
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Create claims a donation
// @Summary Claim donation
// @Description The first NGO to claim an available donation wins; later attempts get 409
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Donation ID"
// @Param body body ClaimRequest false "Notes"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /donations/{id}/claim [post]
func (h *ClaimHandler) Create(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	donationID, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid donation ID")
	}

	var req ClaimRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	claim, err := h.claimService.Create(c.Context(), actor, donationID, req.Notes)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to claim donation")
	}

	return response.Created(c, "Donation claimed successfully", h.render(claim))
}

// Get gets a claim by ID
// @Summary Get claim
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /claims/{id} [get]
func (h *ClaimHandler) Get(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid claim ID")
	}

	claim, err := h.claimService.GetByID(c.Context(), actor, id)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to get claim")
	}

	return response.Success(c, "Claim retrieved successfully", h.render(claim))
}

// ListMine lists the calling NGO's claims
// @Summary My claims (NGO)
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param status query string false "Claim status"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /claims/mine [get]
func (h *ClaimHandler) ListMine(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.FromQuery(c)
	status := domain.ClaimStatus(strings.ToLower(c.Query("status")))

	claims, total, err := h.claimService.ListForNGO(c.Context(), actor, status, params.Offset(), params.Limit)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to list claims")
	}

	return pagination.Send(c, "Claims retrieved successfully", params, claims, total, h.render)
}

// ListReceived lists claims on the calling donor's donations
// @Summary Claims on my donations (donor)
// @Tags Claims
// @Produce json
// @Security BearerAuth
// @Param status query string false "Claim status"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /claims/received [get]
func (h *ClaimHandler) ListReceived(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	params := pagination.FromQuery(c)
	status := domain.ClaimStatus(strings.ToLower(c.Query("status")))

	claims, total, err := h.claimService.ListForDonor(c.Context(), actor, status, params.Offset(), params.Limit)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to list claims")
	}

	return pagination.Send(c, "Claims retrieved successfully", params, claims, total, h.render)
}

// Schedule sets the pickup time
// @Summary Schedule pickup
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Param body body ScheduleRequest true "Pickup time (RFC 3339)"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /claims/{id}/schedule [put]
func (h *ClaimHandler) Schedule(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid claim ID")
	}

	var req ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	at, err := time.Parse(time.RFC3339, strings.TrimSpace(req.PickupScheduledAt))
	if err != nil {
		return response.BadRequest(c, "pickup_scheduled_at must be an RFC 3339 timestamp")
	}

	claim, err := h.claimService.Schedule(c.Context(), actor, id, at, req.Notes)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to schedule pickup")
	}

	return response.Success(c, "Pickup scheduled successfully", h.render(claim))
}

// MarkPickedUp records the pickup
// @Summary Mark picked up
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Param body body ClaimRequest false "Notes"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /claims/{id}/pickup [put]
func (h *ClaimHandler) MarkPickedUp(c *fiber.Ctx) error {
	return h.advance(c, h.claimService.MarkPickedUp, "Pickup recorded successfully", "Failed to record pickup")
}

// Complete completes the claim and the donation
// @Summary Complete claim
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Param body body ClaimRequest false "Notes"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /claims/{id}/complete [put]
func (h *ClaimHandler) Complete(c *fiber.Ctx) error {
	return h.advance(c, h.claimService.Complete, "Claim completed successfully", "Failed to complete claim")
}

// Cancel cancels the claim and releases the donation
// @Summary Cancel claim
// @Description The NGO holding the claim or the donor of the donation may cancel
// @Tags Claims
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Claim ID"
// @Param body body CancelRequest false "Reason"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /claims/{id}/cancel [put]
func (h *ClaimHandler) Cancel(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid claim ID")
	}

	var req CancelRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	claim, err := h.claimService.Cancel(c.Context(), actor, id, req.Reason)
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to cancel claim")
	}

	return response.Success(c, "Claim cancelled successfully", h.render(claim))
}

type advanceFunc func(ctx context.Context, actor domain.Actor, claimID uint, notes string) (*models.Claim, error)

func (h *ClaimHandler) advance(c *fiber.Ctx, fn advanceFunc, success, fallback string) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	id, err := parseID(c)
	if err != nil {
		return response.BadRequest(c, "Invalid claim ID")
	}

	var req ClaimRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	claim, err := fn(c.Context(), actor, id, req.Notes)
	if err != nil {
		return response.FromError(c, h.log, err, fallback)
	}

	return response.Success(c, success, h.render(claim))
}

func (h *ClaimHandler) render(cl *models.Claim) *models.ClaimResponse {
	return cl.ToResponse(h.claimService.Now())
}

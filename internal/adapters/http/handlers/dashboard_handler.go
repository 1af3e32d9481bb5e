package handlers

import (
	"foodlink/internal/adapters/http/middleware"
	"foodlink/internal/core/domain"
	"foodlink/internal/core/services"
	"foodlink/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
	log              *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService, log *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log,
	}
}

// GetDashboard returns the dashboard for the caller's role
// @Summary My dashboard
// @Description Donors get donation counts and recent donations; NGOs get claim counts, nearby availability and urgent donations
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	actor, ok := middleware.GetActor(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	switch actor.Role {
	case domain.RoleDonor:
		data, err := h.dashboardService.GetDonorDashboard(c.Context(), actor)
		if err != nil {
			return response.FromError(c, h.log, err, "Failed to get donor dashboard")
		}
		return response.Success(c, "Donor dashboard retrieved successfully", data)
	case domain.RoleNGO:
		data, err := h.dashboardService.GetNGODashboard(c.Context(), actor)
		if err != nil {
			return response.FromError(c, h.log, err, "Failed to get NGO dashboard")
		}
		return response.Success(c, "NGO dashboard retrieved successfully", data)
	default:
		return response.Forbidden(c, "You don't have permission to access this resource")
	}
}

// GetStats returns public site statistics
// @Summary Site statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Response
// @Router /stats [get]
func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.dashboardService.GetSiteStats(c.Context())
	if err != nil {
		return response.FromError(c, h.log, err, "Failed to get statistics")
	}
	return response.Success(c, "Statistics retrieved successfully", stats)
}

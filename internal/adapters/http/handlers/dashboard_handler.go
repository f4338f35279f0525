package handlers

import (
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetAdminDashboard returns the group overview
// @Summary Admin Dashboard
// @Description Membership counts, collections for the year and loan book (Admin only)
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard/admin [get]
func (h *DashboardHandler) GetAdminDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetAdminDashboard(c.Context())
	if err != nil {
		return serviceError(c, err, "Failed to get admin dashboard")
	}

	return response.Success(c, "Admin dashboard retrieved successfully", data)
}

// GetMemberDashboard returns the signed-in member's position
// @Summary Member Dashboard
// @Description Contributions this year, loans and unread notifications
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /dashboard/member [get]
func (h *DashboardHandler) GetMemberDashboard(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	data, err := h.dashboardService.GetMemberDashboard(c.Context(), memberID)
	if err != nil {
		return serviceError(c, err, "Failed to get member dashboard")
	}

	return response.Success(c, "Member dashboard retrieved successfully", data)
}

// GetMemberDashboardByID returns any member's dashboard (Admin only)
// @Summary Member Dashboard by ID
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /dashboard/members/{id} [get]
func (h *DashboardHandler) GetMemberDashboardByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	data, err := h.dashboardService.GetMemberDashboard(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to get member dashboard")
	}

	return response.Success(c, "Member dashboard retrieved successfully", data)
}

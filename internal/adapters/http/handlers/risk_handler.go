package handlers

import (
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// RiskHandler handles the risk monitor
type RiskHandler struct {
	riskService *services.RiskService
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(riskService *services.RiskService) *RiskHandler {
	return &RiskHandler{riskService: riskService}
}

// AssessAll lists every active member's computed risk (Admin only)
// @Summary Risk monitor
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /risk [get]
func (h *RiskHandler) AssessAll(c *fiber.Ctx) error {
	rows, err := h.riskService.AssessAll(c.Context())
	if err != nil {
		return serviceError(c, err, "Failed to assess risk")
	}
	return response.Success(c, "Risk assessed successfully", rows)
}

// Assess computes one member's risk (Admin only)
// @Summary Member risk
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /risk/members/{id} [get]
func (h *RiskHandler) Assess(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	risk, err := h.riskService.Assess(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to assess risk")
	}
	return response.Success(c, "Risk assessed successfully", risk)
}

// MyRisk computes the signed-in member's risk
// @Summary My risk
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /me/risk [get]
func (h *RiskHandler) MyRisk(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	risk, err := h.riskService.Assess(c.Context(), memberID)
	if err != nil {
		return serviceError(c, err, "Failed to assess risk")
	}
	return response.Success(c, "Risk assessed successfully", risk)
}

// Resync stores the computed risk level when it drifted (Admin only)
// @Summary Resync member risk
// @Description Writes an audit row and notifies the member when the level changes
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Router /risk/members/{id}/resync [post]
func (h *RiskHandler) Resync(c *fiber.Ctx) error {
	adminID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	result, err := h.riskService.Resync(c.Context(), id, adminID, c.IP())
	if err != nil {
		return serviceError(c, err, "Failed to resync risk")
	}

	message := "Risk level already in sync"
	if result.Change != nil {
		message = "Risk level updated"
	}
	return response.Success(c, message, result)
}

// Snapshot counts drifted members and the risk distribution (Admin only)
// @Summary Risk snapshot
// @Tags Risk
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /risk/snapshot [get]
func (h *RiskHandler) Snapshot(c *fiber.Ctx) error {
	snapshot, err := h.riskService.Snapshot(c.Context())
	if err != nil {
		return serviceError(c, err, "Failed to build risk snapshot")
	}
	return response.Success(c, "Risk snapshot retrieved successfully", snapshot)
}

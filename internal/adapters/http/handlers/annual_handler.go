package handlers

import (
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AnnualHandler handles the fiscal year-end report
type AnnualHandler struct {
	annualService *services.AnnualService
}

// NewAnnualHandler creates a new annual handler
func NewAnnualHandler(annualService *services.AnnualService) *AnnualHandler {
	return &AnnualHandler{annualService: annualService}
}

// Summary reports the year's contributions and each member's payout share (Admin only)
// @Summary Annual summary
// @Description Distributable pool is collected contributions less principal still out on loan
// @Tags Annual
// @Produce json
// @Security BearerAuth
// @Param year query int false "Fiscal year, defaults to current"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /annual [get]
func (h *AnnualHandler) Summary(c *fiber.Ctx) error {
	year, err := queryYear(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	summary, err := h.annualService.Summary(c.Context(), year)
	if err != nil {
		return serviceError(c, err, "Failed to build annual summary")
	}

	return response.Success(c, "Annual summary retrieved successfully", summary)
}

package handlers

import (
	"strings"

	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ContributionHandler handles monthly contribution endpoints
type ContributionHandler struct {
	contributionService *services.ContributionService
}

// NewContributionHandler creates a new contribution handler
func NewContributionHandler(contributionService *services.ContributionService) *ContributionHandler {
	return &ContributionHandler{contributionService: contributionService}
}

// OpenPeriodRequest names the period to open. Empty means the current month.
type OpenPeriodRequest struct {
	Period string `json:"period" example:"2024-06"`
}

// RecordPaymentRequest represents a contribution payment body
type RecordPaymentRequest struct {
	MemberID      uint   `json:"member_id"`
	Period        string `json:"period" example:"2024-06"`
	Amount        string `json:"amount" example:"500.00"`
	PaymentMethod string `json:"payment_method" example:"bank_transfer"`
	PaidDate      string `json:"paid_date" example:"2024-06-03"`
}

// OpenPeriod creates unpaid rows for every active member (Admin only)
// @Summary Open contribution period
// @Description Idempotent. Members who joined after the period are skipped.
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body OpenPeriodRequest false "Period to open"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /contributions/periods [post]
func (h *ContributionHandler) OpenPeriod(c *fiber.Ctx) error {
	var req OpenPeriodRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	var (
		result *services.OpenPeriodResult
		err    error
	)
	if strings.TrimSpace(req.Period) == "" {
		result, err = h.contributionService.OpenCurrentPeriod(c.Context())
	} else {
		period, perr := domain.ParsePeriod(strings.TrimSpace(req.Period))
		if perr != nil {
			return response.BadRequest(c, perr.Error())
		}
		result, err = h.contributionService.OpenPeriod(c.Context(), period)
	}
	if err != nil {
		return serviceError(c, err, "Failed to open period")
	}

	return response.Success(c, "Period opened successfully", result)
}

// RecordPayment marks a member's contribution as paid (Admin only)
// @Summary Record contribution payment
// @Description Amount defaults to the monthly contribution and must equal it when sent.
// @Tags Contributions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RecordPaymentRequest true "Payment details"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /contributions/payments [post]
func (h *ContributionHandler) RecordPayment(c *fiber.Ctx) error {
	adminID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.MemberID == 0 || req.Period == "" {
		return response.BadRequest(c, "Member and period are required")
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	paidDate, err := parseDate(req.PaidDate)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	row, err := h.contributionService.RecordPayment(c.Context(), &services.RecordPaymentInput{
		MemberID:      req.MemberID,
		Period:        strings.TrimSpace(req.Period),
		Amount:        amount,
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		PaidDate:      paidDate,
	}, adminID)
	if err != nil {
		return serviceError(c, err, "Failed to record payment")
	}

	return response.Success(c, "Payment recorded successfully", row)
}

// ListPeriod lists every member's contribution for one period (Admin only)
// @Summary List contributions for a period
// @Tags Contributions
// @Produce json
// @Security BearerAuth
// @Param period path string true "Period, YYYY-MM"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /contributions/periods/{period} [get]
func (h *ContributionHandler) ListPeriod(c *fiber.Ctx) error {
	rows, err := h.contributionService.ListPeriod(c.Context(), c.Params("period"))
	if err != nil {
		return serviceError(c, err, "Failed to list contributions")
	}

	return response.Success(c, "Contributions retrieved successfully", rows)
}

// MemberYear returns a member's contribution summary for a year (Admin only)
// @Summary Member contribution summary
// @Tags Contributions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param year query int false "Fiscal year, defaults to current"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id}/contributions [get]
func (h *ContributionHandler) MemberYear(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}
	return h.yearSummary(c, id)
}

// MyYear returns the signed-in member's contribution summary
// @Summary My contribution summary
// @Tags Contributions
// @Produce json
// @Security BearerAuth
// @Param year query int false "Fiscal year, defaults to current"
// @Success 200 {object} response.Response
// @Router /me/contributions [get]
func (h *ContributionHandler) MyYear(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	return h.yearSummary(c, memberID)
}

func (h *ContributionHandler) yearSummary(c *fiber.Ctx, memberID uint) error {
	year, err := queryYear(c)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	summary, err := h.contributionService.MemberYearSummary(c.Context(), memberID, year)
	if err != nil {
		return serviceError(c, err, "Failed to get contribution summary")
	}

	return response.Success(c, "Contribution summary retrieved successfully", summary)
}

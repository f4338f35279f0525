package handlers

import (
	"context"
	"fmt"
	"strings"

	"stockvel-tracker/internal/adapters/http/middleware"
	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/engine"
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/pagination"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// LoanHandler handles loan endpoints
type LoanHandler struct {
	loanService *services.LoanService
}

// NewLoanHandler creates a new loan handler
func NewLoanHandler(loanService *services.LoanService) *LoanHandler {
	return &LoanHandler{loanService: loanService}
}

// LoanQuoteRequest is the body of a preview or loan request
type LoanQuoteRequest struct {
	MemberID   uint    `json:"member_id"`
	Principal  float64 `json:"principal" example:"5000"`
	TermMonths int     `json:"term_months" example:"12"`
	Purpose    string  `json:"purpose"`
}

// RejectLoanRequest carries the rejection reason
type RejectLoanRequest struct {
	Reason string `json:"reason"`
}

// RepaymentRequest represents a repayment body. Empty amount pays the next installment.
type RepaymentRequest struct {
	Amount        string `json:"amount" example:"746.67"`
	PaymentMethod string `json:"payment_method" example:"bank_transfer"`
	PaidDate      string `json:"paid_date" example:"2024-07-01"`
}

func (r *LoanQuoteRequest) validate() error {
	if !config.IsAllowedTerm(r.TermMonths) {
		return fmt.Errorf("term must be one of %v months", config.AllowedTermMonths)
	}
	return nil
}

// Preview quotes a loan without storing it
// @Summary Preview loan
// @Description Interest rate, totals and installment schedule for a principal and term
// @Tags Loans
// @Accept json
// @Produce json
// @Param body body LoanQuoteRequest true "Principal and term"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /loans/preview [post]
func (h *LoanHandler) Preview(c *fiber.Ctx) error {
	var req LoanQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return response.BadRequest(c, err.Error())
	}
	principal, err := engine.PrincipalFromFloat(req.Principal)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	preview, err := h.loanService.Preview(principal, req.TermMonths)
	if err != nil {
		return serviceError(c, err, "Failed to preview loan")
	}

	return response.Success(c, "Loan preview calculated", preview)
}

// Request files a pending loan. Members borrow for themselves; admins may name a member.
// @Summary Request loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body LoanQuoteRequest true "Loan request"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /loans [post]
func (h *LoanHandler) Request(c *fiber.Ctx) error {
	var req LoanQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := req.validate(); err != nil {
		return response.BadRequest(c, err.Error())
	}
	principal, err := engine.PrincipalFromFloat(req.Principal)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	memberID, ok := currentMemberID(c)
	if middleware.IsAdmin(c) && req.MemberID != 0 {
		memberID, ok = req.MemberID, true
	}
	if !ok {
		return response.BadRequest(c, "Member is required")
	}

	loan, err := h.loanService.Request(c.Context(), &services.RequestLoanInput{
		MemberID:   memberID,
		Principal:  principal,
		TermMonths: req.TermMonths,
		Purpose:    req.Purpose,
	})
	if err != nil {
		return serviceError(c, err, "Failed to request loan")
	}

	return response.Created(c, "Loan requested successfully", loan.ToResponse())
}

// List lists loans. Members only see their own.
// @Summary List loans
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param status query string false "Loan status"
// @Param member_id query int false "Member filter (admin only)"
// @Success 200 {object} response.Response
// @Router /loans [get]
func (h *LoanHandler) List(c *fiber.Ctx) error {
	params := pagination.FromQuery(c)
	input := &services.ListLoansInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Status: strings.ToLower(c.Query("status")),
	}

	if middleware.IsAdmin(c) {
		if raw := c.QueryInt("member_id"); raw > 0 {
			memberID := uint(raw)
			input.MemberID = &memberID
		}
	} else {
		memberID, ok := currentMemberID(c)
		if !ok {
			return response.Forbidden(c, "No member record for this account")
		}
		input.MemberID = &memberID
	}

	result, err := h.loanService.List(c.Context(), input)
	if err != nil {
		return serviceError(c, err, "Failed to list loans")
	}

	return response.Success(c, "Loans retrieved successfully", result)
}

// Get returns one loan
// @Summary Get loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /loans/{id} [get]
func (h *LoanHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}
	if err := h.authorize(c, id); err != nil {
		return serviceError(c, err, "Failed to get loan")
	}

	loan, err := h.loanService.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to get loan")
	}

	return response.Success(c, "Loan retrieved successfully", loan.ToResponse())
}

// Schedule returns the installment plan with coverage so far
// @Summary Loan schedule
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/schedule [get]
func (h *LoanHandler) Schedule(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}
	if err := h.authorize(c, id); err != nil {
		return serviceError(c, err, "Failed to get schedule")
	}

	schedule, err := h.loanService.Schedule(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to get schedule")
	}

	return response.Success(c, "Schedule retrieved successfully", schedule)
}

// Progress returns how much of a loan is repaid
// @Summary Loan repayment progress
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/progress [get]
func (h *LoanHandler) Progress(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}
	if err := h.authorize(c, id); err != nil {
		return serviceError(c, err, "Failed to get progress")
	}

	progress, err := h.loanService.Progress(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to get progress")
	}

	return response.Success(c, "Progress retrieved successfully", progress)
}

// Repayments lists a loan's repayments
// @Summary List repayments
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/repayments [get]
func (h *LoanHandler) Repayments(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}
	if err := h.authorize(c, id); err != nil {
		return serviceError(c, err, "Failed to list repayments")
	}

	rows, err := h.loanService.Repayments(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to list repayments")
	}

	return response.Success(c, "Repayments retrieved successfully", rows)
}

// RecordRepayment books a repayment against an active or overdue loan (Admin only)
// @Summary Record repayment
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RepaymentRequest false "Repayment details"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/repayments [post]
func (h *LoanHandler) RecordRepayment(c *fiber.Ctx) error {
	adminID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req RepaymentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}
	paidDate, err := parseDate(req.PaidDate)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	loan, repayment, err := h.loanService.RecordRepayment(c.Context(), id, &services.RecordRepaymentInput{
		Amount:        amount,
		PaymentMethod: strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
		PaidDate:      paidDate,
	}, adminID)
	if err != nil {
		return serviceError(c, err, "Failed to record repayment")
	}

	return response.Success(c, "Repayment recorded successfully", fiber.Map{
		"loan":      loan.ToResponse(),
		"repayment": repayment,
	})
}

// Approve approves a pending loan (Admin only)
// @Summary Approve loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/approve [post]
func (h *LoanHandler) Approve(c *fiber.Ctx) error {
	adminID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := h.loanService.Approve(c.Context(), id, adminID)
	if err != nil {
		return serviceError(c, err, "Failed to approve loan")
	}

	return response.Success(c, "Loan approved successfully", loan.ToResponse())
}

// Reject rejects a pending loan (Admin only)
// @Summary Reject loan
// @Tags Loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Param body body RejectLoanRequest false "Reason"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /loans/{id}/reject [post]
func (h *LoanHandler) Reject(c *fiber.Ctx) error {
	adminID, ok := currentUserID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	var req RejectLoanRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	loan, err := h.loanService.Reject(c.Context(), id, adminID, strings.TrimSpace(req.Reason))
	if err != nil {
		return serviceError(c, err, "Failed to reject loan")
	}

	return response.Success(c, "Loan rejected", loan.ToResponse())
}

// Activate disburses an approved loan (Admin only)
// @Summary Activate loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/activate [post]
func (h *LoanHandler) Activate(c *fiber.Ctx) error {
	return h.move(c, h.loanService.Activate, "Loan activated")
}

// MarkOverdue flags an active loan as overdue (Admin only)
// @Summary Mark loan overdue
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/overdue [post]
func (h *LoanHandler) MarkOverdue(c *fiber.Ctx) error {
	return h.move(c, h.loanService.MarkOverdue, "Loan marked overdue")
}

// Reinstate returns an overdue loan to active (Admin only)
// @Summary Reinstate loan
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param id path int true "Loan ID"
// @Success 200 {object} response.Response
// @Router /loans/{id}/reinstate [post]
func (h *LoanHandler) Reinstate(c *fiber.Ctx) error {
	return h.move(c, h.loanService.Reinstate, "Loan reinstated")
}

type loanTransition func(ctx context.Context, id uint) (*models.Loan, error)

func (h *LoanHandler) move(c *fiber.Ctx, transition loanTransition, message string) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid loan ID")
	}

	loan, err := transition(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to update loan")
	}

	return response.Success(c, message, loan.ToResponse())
}

// authorize lets admins through and checks ownership for members
func (h *LoanHandler) authorize(c *fiber.Ctx, loanID uint) error {
	if middleware.IsAdmin(c) {
		return nil
	}
	memberID, ok := currentMemberID(c)
	if !ok {
		return services.ErrNotLoanOwner
	}
	_, err := h.loanService.GetForMember(c.Context(), loanID, memberID)
	return err
}

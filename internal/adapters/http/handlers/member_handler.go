package handlers

import (
	"strings"

	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/pagination"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// maxAvatarSize is the largest profile image accepted
const maxAvatarSize = 5 << 20

// MemberHandler handles member enrollment and administration
type MemberHandler struct {
	memberService *services.MemberService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService) *MemberHandler {
	return &MemberHandler{memberService: memberService}
}

// EnrollMemberRequest represents an enrollment request body
type EnrollMemberRequest struct {
	MemberNo  string `json:"member_no"`
	FirstName string `json:"first_name"`
	Surname   string `json:"surname"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	JoinDate  string `json:"join_date" example:"2024-01-15"`
	Status    string `json:"status" example:"active"`
}

// UpdateStatusRequest represents a membership status change
type UpdateStatusRequest struct {
	Status string `json:"status" example:"suspended"`
}

// Enroll registers a new member (Admin only)
// @Summary Enroll member
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body EnrollMemberRequest true "Member details"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /members [post]
func (h *MemberHandler) Enroll(c *fiber.Ctx) error {
	var req EnrollMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	joinDate, err := parseDate(req.JoinDate)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	member, err := h.memberService.Enroll(c.Context(), &services.EnrollMemberInput{
		MemberNo:  req.MemberNo,
		FirstName: req.FirstName,
		Surname:   req.Surname,
		Email:     req.Email,
		Phone:     req.Phone,
		JoinDate:  joinDate,
		Status:    req.Status,
	})
	if err != nil {
		return serviceError(c, err, "Failed to enroll member")
	}

	return response.Created(c, "Member enrolled successfully", member.ToResponse())
}

// List lists members (Admin only)
// @Summary List members
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Param search query string false "Name or member number"
// @Param status query string false "pending, active or suspended"
// @Success 200 {object} response.Response
// @Router /members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	params := pagination.FromQuery(c)

	result, err := h.memberService.List(c.Context(), &services.ListMembersInput{
		Page:   params.Page,
		Limit:  params.Limit,
		Search: c.Query("search"),
		Status: c.Query("status"),
	})
	if err != nil {
		return serviceError(c, err, "Failed to list members")
	}

	return response.Success(c, "Members retrieved successfully", result)
}

// Get returns one member (Admin only)
// @Summary Get member
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.Get(c.Context(), id)
	if err != nil {
		return serviceError(c, err, "Failed to get member")
	}

	return response.Success(c, "Member retrieved successfully", member.ToResponse())
}

// Me returns the signed-in user's member record
// @Summary Get my member record
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /me [get]
func (h *MemberHandler) Me(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	member, err := h.memberService.Get(c.Context(), memberID)
	if err != nil {
		return serviceError(c, err, "Failed to get member")
	}

	return response.Success(c, "Member retrieved successfully", member.ToResponse())
}

// Update changes a member's contact details (Admin only)
// @Summary Update member
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body services.UpdateMemberInput true "Fields to change"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /members/{id} [put]
func (h *MemberHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	var input services.UpdateMemberInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.Update(c.Context(), id, &input)
	if err != nil {
		return serviceError(c, err, "Failed to update member")
	}

	return response.Success(c, "Member updated successfully", member.ToResponse())
}

// UpdateStatus activates, suspends or parks a member (Admin only)
// @Summary Change membership status
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body UpdateStatusRequest true "New status"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /members/{id}/status [patch]
func (h *MemberHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	member, err := h.memberService.UpdateStatus(c.Context(), id, strings.ToLower(strings.TrimSpace(req.Status)))
	if err != nil {
		return serviceError(c, err, "Failed to update member status")
	}

	return response.Success(c, "Member status updated successfully", member.ToResponse())
}

// Remove deletes a member with all contributions, loans and accounts (Admin only)
// @Summary Remove member
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [delete]
func (h *MemberHandler) Remove(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}
	actingMemberID, _ := currentMemberID(c)

	if err := h.memberService.Remove(c.Context(), id, actingMemberID); err != nil {
		return serviceError(c, err, "Failed to remove member")
	}

	return response.Success(c, "Member removed successfully", nil)
}

// UploadAvatar stores a profile image for a member (Admin only)
// @Summary Upload member avatar
// @Tags Members
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param avatar formData file true "Image file, at most 5MB"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 503 {object} response.Response
// @Router /members/{id}/avatar [post]
func (h *MemberHandler) UploadAvatar(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid member ID")
	}
	return h.uploadAvatar(c, id)
}

// UploadMyAvatar stores a profile image for the signed-in member
// @Summary Upload my avatar
// @Tags Members
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Image file, at most 5MB"
// @Success 200 {object} response.Response
// @Router /me/avatar [post]
func (h *MemberHandler) UploadMyAvatar(c *fiber.Ctx) error {
	memberID, ok := currentMemberID(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}
	return h.uploadAvatar(c, memberID)
}

func (h *MemberHandler) uploadAvatar(c *fiber.Ctx, memberID uint) error {
	header, err := c.FormFile("avatar")
	if err != nil {
		return response.BadRequest(c, "Avatar file is required")
	}
	if header.Size > maxAvatarSize {
		return response.BadRequest(c, "Avatar must be 5MB or smaller")
	}
	if !strings.HasPrefix(header.Header.Get(fiber.HeaderContentType), "image/") {
		return response.BadRequest(c, "Avatar must be an image")
	}

	file, err := header.Open()
	if err != nil {
		return response.BadRequest(c, "Failed to read avatar file")
	}
	defer file.Close()

	member, err := h.memberService.UploadAvatar(c.Context(), memberID, file)
	if err != nil {
		return serviceError(c, err, "Failed to upload avatar")
	}

	return response.Success(c, "Avatar uploaded successfully", member.ToResponse())
}

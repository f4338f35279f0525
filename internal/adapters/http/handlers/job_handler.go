package handlers

import (
	"stockvel-tracker/internal/core/services"
	"stockvel-tracker/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// JobHandler lets admins trigger background jobs
type JobHandler struct {
	cronService *services.CronService
}

// NewJobHandler creates a new job handler
func NewJobHandler(cronService *services.CronService) *JobHandler {
	return &JobHandler{cronService: cronService}
}

// List returns the registered jobs and their schedules (Admin only)
// @Summary List background jobs
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /admin/jobs [get]
func (h *JobHandler) List(c *fiber.Ctx) error {
	return response.Success(c, "Jobs retrieved successfully", h.cronService.Jobs())
}

// Run executes a job immediately (Admin only)
// @Summary Run background job
// @Tags Jobs
// @Produce json
// @Security BearerAuth
// @Param name path string true "Job name"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/jobs/{name}/run [post]
func (h *JobHandler) Run(c *fiber.Ctx) error {
	name := c.Params("name")
	if !h.cronService.Has(name) {
		return response.NotFound(c, "Job not found")
	}

	if err := h.cronService.RunNow(name); err != nil {
		return serviceError(c, err, "Job "+name+" failed")
	}

	return response.Success(c, "Job "+name+" completed", nil)
}

package handlers

import (
	"context"
	"time"

	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db        *gorm.DB
	hub       *services.NotificationHub
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. hub may be nil.
func NewHealthHandler(db *gorm.DB, hub *services.NotificationHub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub, startedAt: time.Now()}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 Stockvel Tracker API v1 is running",
		"mode":    config.AppConfig.AppMode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck pings the database with a short timeout
// @Summary Health check
// @Description Check API and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	database := fiber.Map{"status": "healthy"}
	status, code := "ok", fiber.StatusOK

	began := time.Now()
	if err := config.PingDatabase(ctx, h.db); err != nil {
		database = fiber.Map{"status": "unhealthy", "error": err.Error()}
		status, code = "degraded", fiber.StatusServiceUnavailable
	} else {
		database["latency_ms"] = time.Since(began).Milliseconds()
	}

	streams := 0
	if h.hub != nil {
		streams = h.hub.ClientCount()
	}

	return c.Status(code).JSON(fiber.Map{
		"status":         status,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"checks": fiber.Map{
			"api":      "healthy",
			"database": database,
		},
		"open_streams": streams,
	})
}

// APIInfo handles API v1 info
// @Summary API v1 Info
// @Description Returns API v1 information and the group's contribution policy
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1 [get]
func (h *HealthHandler) APIInfo(c *fiber.Ctx) error {
	policy := config.AppConfig.Stockvel
	return c.JSON(fiber.Map{
		"message": "Stockvel Tracker API v1",
		"version": "1.0.0",
		"policy": fiber.Map{
			"monthly_contribution": policy.MonthlyContribution.StringFixed(2),
			"currency":             policy.CurrencySymbol,
			"loan_terms_months":    config.AllowedTermMonths,
		},
	})
}

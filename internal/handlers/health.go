package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/models"
	"brent-dashboard-api/internal/services"
)

type HealthHandler struct {
	startTime time.Time
	service   *services.DashboardService
	version   string
}

func NewHealthHandler(service *services.DashboardService, version string) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		service:   service,
		version:   version,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"service": "brent-dashboard-api",
		"version": h.version,
		"uptime":  time.Since(h.startTime).String(),
		"time":    time.Now(),
	})
}

// Ready handles GET /health/ready
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	snap := h.service.Current()

	status := fiber.StatusOK
	if snap.State != dashboard.Ready {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"status":     snap.State.String(),
		"session_id": snap.ID,
	})
}

// CustomErrorHandler handles Fiber errors
func CustomErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(models.ErrorResponse{
		Error:   "Request failed",
		Message: err.Error(),
		Code:    code,
	})
}

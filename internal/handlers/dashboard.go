package handlers

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/models"
	"brent-dashboard-api/internal/render"
	"brent-dashboard-api/internal/services"
)

const maxChartDimension = 4000

type DashboardHandler struct {
	service      *services.DashboardService
	chartOptions render.Options
}

func NewDashboardHandler(service *services.DashboardService, chartOptions render.Options) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		chartOptions: chartOptions,
	}
}

// GetDashboard handles GET /v1/dashboard
func (h *DashboardHandler) GetDashboard(c *fiber.Ctx) error {
	snap := h.service.Current()

	resp := models.DashboardResponse{
		SessionID: snap.ID,
		State:     snap.State.String(),
		Screen:    snap.Screen(),
	}
	switch snap.State {
	case dashboard.Failed:
		resp.Error = snap.Err.Error()
	case dashboard.Ready:
		resp.Summary = snap.Model.Summary()
		resp.Events = snap.Model.EventCards()
		loadedAt := snap.Model.LoadedAt()
		resp.LoadedAt = &loadedAt
	}

	return c.JSON(resp)
}

// GetChart handles GET /v1/dashboard/chart
func (h *DashboardHandler) GetChart(c *fiber.Ctx) error {
	model, err := readyModel(c, h.service.Current())
	if model == nil {
		return err
	}

	return c.JSON(dashboard.Compose(model))
}

// GetChartPNG handles GET /v1/dashboard/chart.png
func (h *DashboardHandler) GetChartPNG(c *fiber.Ctx) error {
	model, err := readyModel(c, h.service.Current())
	if model == nil {
		return err
	}

	opts := h.chartOptions
	opts.Width = c.QueryInt("width", opts.Width)
	opts.Height = c.QueryInt("height", opts.Height)
	if opts.Width <= 0 || opts.Height <= 0 || opts.Width > maxChartDimension || opts.Height > maxChartDimension {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid chart size",
			Message: "width and height must be between 1 and 4000",
			Code:    fiber.StatusBadRequest,
		})
	}

	var buf bytes.Buffer
	if err := render.PNG(dashboard.Compose(model), opts, &buf); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(models.ErrorResponse{
			Error:   "Failed to render chart",
			Message: err.Error(),
			Code:    fiber.StatusUnprocessableEntity,
		})
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(buf.Bytes())
}

// GetTooltip handles GET /v1/dashboard/tooltip?date=YYYY-MM-DD[&price=]
func (h *DashboardHandler) GetTooltip(c *fiber.Ctx) error {
	date := models.DateKey(c.Query("date"))
	if date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Date is required",
			Code:  fiber.StatusBadRequest,
		})
	}
	if _, err := date.Time(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error:   "Invalid date",
			Message: "date must be formatted as YYYY-MM-DD",
			Code:    fiber.StatusBadRequest,
		})
	}

	var price *float64
	if raw := c.Query("price"); raw != "" {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error:   "Invalid price",
				Message: err.Error(),
				Code:    fiber.StatusBadRequest,
			})
		}
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error:   "Invalid price",
				Message: "price must be a finite number",
				Code:    fiber.StatusBadRequest,
			})
		}
		price = &p
	}

	model, err := readyModel(c, h.service.Current())
	if model == nil {
		return err
	}

	if price != nil {
		return c.JSON(dashboard.Resolve(date, *price, model.EventsByDate()))
	}
	return c.JSON(model.Tooltip(date))
}

// GetEvents handles GET /v1/dashboard/events
func (h *DashboardHandler) GetEvents(c *fiber.Ctx) error {
	model, err := readyModel(c, h.service.Current())
	if model == nil {
		return err
	}

	return c.JSON(model.EventCards())
}

// Reload handles POST /v1/admin/reload
func (h *DashboardHandler) Reload(c *fiber.Ctx) error {
	session := h.service.Reload(c.UserContext())

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message":    "Reload started",
		"session_id": session.ID(),
		"time":       time.Now(),
	})
}

// readyModel returns the model of a Ready session. Otherwise it writes the
// loading or failure response and returns a nil model with the write error.
func readyModel(c *fiber.Ctx, snap dashboard.Snapshot) (*dashboard.Model, error) {
	switch snap.State {
	case dashboard.Ready:
		return snap.Model, nil
	case dashboard.Failed:
		return nil, c.Status(fiber.StatusBadGateway).JSON(models.ErrorResponse{
			Error:   "Dashboard failed to load",
			Message: snap.Err.Error(),
			Code:    fiber.StatusBadGateway,
		})
	default:
		c.Set(fiber.HeaderRetryAfter, "1")
		return nil, c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error:   "Dashboard is loading",
			Message: "Loading dashboard data...",
			Code:    fiber.StatusServiceUnavailable,
		})
	}
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"brent-dashboard-api/internal/config"
	"brent-dashboard-api/internal/models"
	"brent-dashboard-api/internal/render"
	"brent-dashboard-api/internal/services"
)

// Version is reported by / and /health.
const Version = "1.0.0"

// NewApp builds the Fiber app with middleware and routes.
func NewApp(cfg *config.Config, service *services.DashboardService, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "Brent-Dashboard",
		AppName:       "Brent Dashboard v" + Version,
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 30,
		BodyLimit:     1 * 1024 * 1024,
		ErrorHandler:  CustomErrorHandler,
	})

	// Middleware stack
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path} ${locals:requestid}\n",
		Output: log,
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
		MaxAge:       3600,
	}))
	if cfg.RateLimitPerMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitPerMinute,
			Expiration: 1 * time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
					Error: "Rate limit exceeded. Please try again later.",
					Code:  fiber.StatusTooManyRequests,
				})
			},
		}))
	}

	chartOptions := render.DefaultOptions()
	chartOptions.Width = cfg.ChartWidth
	chartOptions.Height = cfg.ChartHeight

	dashboardHandler := NewDashboardHandler(service, chartOptions)
	healthHandler := NewHealthHandler(service, Version)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "Brent Dashboard API",
			"version": Version,
			"status":  "running",
		})
	})

	app.Get("/health", healthHandler.Health)
	app.Get("/health/ready", healthHandler.Ready)

	v1 := app.Group("/v1")
	v1.Get("/dashboard", dashboardHandler.GetDashboard)
	v1.Get("/dashboard/chart", dashboardHandler.GetChart)
	v1.Get("/dashboard/chart.png", dashboardHandler.GetChartPNG)
	v1.Get("/dashboard/tooltip", dashboardHandler.GetTooltip)
	v1.Get("/dashboard/events", dashboardHandler.GetEvents)
	v1.Post("/admin/reload", dashboardHandler.Reload)

	return app
}

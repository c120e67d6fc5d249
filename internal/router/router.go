package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/classmirror-api/internal/config"
	"github.com/noah-isme/classmirror-api/internal/handler"
	"github.com/noah-isme/classmirror-api/internal/middleware"
	"github.com/noah-isme/classmirror-api/internal/models"
	"github.com/noah-isme/classmirror-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	ClassroomHandler *handler.ClassroomHandler
	ProgressHandler  *handler.ProgressHandler
	JWTMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth")
		deps.AuthHandler.Register(auth, auth.Group("", jwtMiddleware))
	}

	if deps.ClassroomHandler != nil {
		classroom := api.Group("/classroom", jwtMiddleware)
		deps.ClassroomHandler.Register(classroom)
	}

	if deps.ProgressHandler != nil {
		teacher := api.Group("/progress", jwtMiddleware,
			middleware.RequireRole(models.RoleTeacher, models.RoleCoordinator))
		deps.ProgressHandler.RegisterTeacher(teacher)

		student := api.Group("/student", jwtMiddleware)
		deps.ProgressHandler.RegisterStudent(student)
	}
}

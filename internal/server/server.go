// Package server assembles the Fiber application.
package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/config"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

// PublicRoutes is implemented by handlers with unauthenticated endpoints.
type PublicRoutes interface {
	RegisterPublicRoutes(r fiber.Router)
}

// ProtectedRoutes is implemented by handlers that need a signed-in user.
type ProtectedRoutes interface {
	RegisterProtectedRoutes(r fiber.Router)
}

// New builds the app. Public routes are registered before the JWT
// middleware, protected routes after it, so registration order matters.
func New(cfg config.Config, logger *slog.Logger, handlers Handlers) *fiber.App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: httpx.ErrorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return httpx.OK(c, fiber.Map{"status": "ok"})
	})
	app.Get("/api/public-config", func(c *fiber.Ctx) error {
		return httpx.OK(c, fiber.Map{
			"chatWidgetId":   cfg.ChatWidgetID,
			"omisePublicKey": cfg.OmisePublicKey,
			"publicAppUrl":   cfg.PublicAppURL,
		})
	})

	for _, h := range handlers.list() {
		if p, ok := h.(PublicRoutes); ok {
			p.RegisterPublicRoutes(app)
		}
	}

	app.Use(auth.Middleware(cfg.JWTSecret))

	for _, h := range handlers.list() {
		if p, ok := h.(ProtectedRoutes); ok {
			p.RegisterProtectedRoutes(app)
		}
	}
	return app
}

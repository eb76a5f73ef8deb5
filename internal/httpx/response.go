// Package httpx holds the JSON envelope shared by every endpoint:
// {"success": true, ...payload} on success and {"error": "..."} on failure.
package httpx

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// OK writes a 200 envelope.
func OK(c *fiber.Ctx, payload fiber.Map) error {
	return Status(c, fiber.StatusOK, payload)
}

// Created writes a 201 envelope.
func Created(c *fiber.Ctx, payload fiber.Map) error {
	return Status(c, fiber.StatusCreated, payload)
}

// Status writes a success envelope with an explicit status code.
func Status(c *fiber.Ctx, status int, payload fiber.Map) error {
	body := fiber.Map{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// Error writes an error envelope.
func Error(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// Internal logs err and writes a generic 500; the original error never reaches the client.
func Internal(c *fiber.Ctx, log *slog.Logger, err error) error {
	if log != nil {
		log.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return Error(c, fiber.StatusInternalServerError, "internal server error")
}

// Fail renders a *fiber.Error with its own status and message, anything else as a 500.
func Fail(c *fiber.Ctx, log *slog.Logger, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Error(c, fe.Code, fe.Message)
	}
	return Internal(c, log, err)
}

// ErrorHandler is installed as fiber.Config.ErrorHandler so routing errors,
// panics caught by recover and unhandled returns share the envelope.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return Fail(c, log, err)
	}
}

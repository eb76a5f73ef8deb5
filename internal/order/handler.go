package order

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

// Handler delegates order operations to the order service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/checkout", h.checkout)
	r.Get("/api/orders", h.getOrders)
	r.Get("/api/orders/:id", h.getOrder)
}

type checkoutRequest struct {
	ShippingCents int64 `json:"shippingCents" validate:"gte=0"`
}

func (h *Handler) checkout(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req checkoutRequest
	if len(c.Body()) > 0 {
		if err := httpx.Bind(c, &req); err != nil {
			return httpx.Fail(c, h.logger, err)
		}
	}

	created, err := h.service.Checkout(c.UserContext(), profileID, req.ShippingCents)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart), IsUnavailable(err):
			return httpx.Error(c, fiber.StatusBadRequest, err.Error())
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.Created(c, fiber.Map{"order": created})
}

func (h *Handler) getOrders(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	orders, err := h.service.List(c.UserContext(), profileID)
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"orders": orders})
}

func (h *Handler) getOrder(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "invalid order id")
	}

	o, err := h.service.GetOwned(c.UserContext(), profileID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.Error(c, fiber.StatusNotFound, "order not found")
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"order": o})
}

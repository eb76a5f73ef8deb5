package cart

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

type addItemRequest struct {
	ProductID int `json:"productId" validate:"required,min=1"`
	Quantity  int `json:"quantity" validate:"required,min=-999,max=999"`
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/cart", h.getCart)
	r.Post("/api/cart/items", h.addItem)
	r.Delete("/api/cart", h.clearCart)
}

func (h *Handler) getCart(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	cart, err := h.service.View(c.UserContext(), profileID)
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"cart": cart})
}

func (h *Handler) addItem(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req addItemRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	cart, err := h.service.AddItem(c.UserContext(), profileID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductNotFound):
			return httpx.Error(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, ErrInvalidQuantity):
			return httpx.Error(c, fiber.StatusBadRequest, err.Error())
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"cart": cart})
}

func (h *Handler) clearCart(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	if err := h.service.Clear(c.UserContext(), profileID); err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

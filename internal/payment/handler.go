package payment

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/booking"
	"github.com/wichananm65/storefront-backend/internal/httpx"
	"github.com/wichananm65/storefront-backend/internal/order"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/api/webhooks/payment", h.webhook)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/payment", h.payOrder)
	r.Post("/api/deposit", h.payDeposit)
}

type paymentRequest struct {
	OrderID    int    `json:"orderId" validate:"required,gte=1"`
	CardToken  string `json:"cardToken"`
	SourceType string `json:"sourceType"`
}

type depositRequest struct {
	BookingID   int    `json:"bookingId" validate:"required,gte=1"`
	AmountCents int64  `json:"amountCents" validate:"required,gte=1"`
	CardToken   string `json:"cardToken"`
	SourceType  string `json:"sourceType"`
}

type webhookRequest struct {
	ID  string `json:"id" validate:"required"`
	Key string `json:"key"`
}

func (h *Handler) payOrder(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req paymentRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	res, err := h.service.ForOrder(c.UserContext(), profileID, req.OrderID, Method{CardToken: req.CardToken, SourceType: req.SourceType})
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"chargeId": res.ChargeID, "status": res.Status, "authorizeUri": res.AuthorizeURI})
}

func (h *Handler) payDeposit(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req depositRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	isAdmin := auth.Role(c) == auth.RoleAdmin
	res, err := h.service.Deposit(c.UserContext(), profileID, isAdmin, req.BookingID, req.AmountCents, Method{CardToken: req.CardToken, SourceType: req.SourceType})
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"chargeId": res.ChargeID, "status": res.Status, "authorizeUri": res.AuthorizeURI})
}

// webhook acknowledges processor events. The body is only trusted for its
// event id; everything else is re-fetched from the processor.
func (h *Handler) webhook(c *fiber.Ctx) error {
	var req webhookRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	if err := h.service.HandleEvent(c.UserContext(), req.ID); err != nil {
		if errors.Is(err, ErrUnverifiedEvent) {
			return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, nil)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, order.ErrNotFound), errors.Is(err, booking.ErrNotFound):
		return httpx.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrMissingMethod), errors.Is(err, ErrAlreadyPaid), errors.Is(err, ErrNotPayable):
		return httpx.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotConfigured):
		return httpx.Error(c, fiber.StatusServiceUnavailable, err.Error())
	}
	return httpx.Internal(c, h.logger, err)
}

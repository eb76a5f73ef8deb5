package messaging

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
	"github.com/wichananm65/storefront-backend/internal/webhook"
)

type HandlerConfig struct {
	WebhookSecret    string
	WebhookTolerance time.Duration
	// Now is used for webhook freshness checks.
	Now func() time.Time
}

type Handler struct {
	service *Service
	cfg     HandlerConfig
	logger  *slog.Logger
}

func NewHandler(s *Service, cfg HandlerConfig, logger *slog.Logger) *Handler {
	return &Handler{service: s, cfg: cfg, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	guard := webhook.Guard(webhook.GuardConfig{
		Secret:    h.cfg.WebhookSecret,
		Tolerance: h.cfg.WebhookTolerance,
		Headers:   []string{"resend-signature", "webhook-signature"},
		Now:       h.cfg.Now,
		Logger:    h.logger,
	})
	r.Post("/api/webhooks/messaging", guard, h.deliveryEvent)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/messages", auth.RequireAdmin(), h.sendMessage)
	r.Post("/api/messages/:id/resend", auth.RequireAdmin(), h.resendMessage)
	r.Get("/api/messages/logs", auth.RequireAdmin(), h.getLogs)
}

type sendRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,max=50"`
	Message    string   `json:"message" validate:"required,max=5000"`
	Subject    string   `json:"subject" validate:"omitempty,max=200"`
	Channel    string   `json:"channel" validate:"required,oneof=email sms"`
}

type emailRecipients struct {
	Recipients []string `json:"recipients" validate:"dive,email"`
}

type smsRecipients struct {
	Recipients []string `json:"recipients" validate:"dive,e164"`
}

type logsQuery struct {
	Channel string `query:"channel" validate:"omitempty,oneof=email sms"`
	Status  string `query:"status" validate:"omitempty,oneof=queued sent delivered failed bounced"`
}

func (h *Handler) sendMessage(c *fiber.Ctx) error {
	var req sendRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	var err error
	if req.Channel == ChannelEmail {
		err = httpx.Validate(emailRecipients{Recipients: req.Recipients})
	} else {
		err = httpx.Validate(smsRecipients{Recipients: req.Recipients})
	}
	if err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	l, err := h.service.Send(c.UserContext(), Message{
		Channel:    req.Channel,
		Recipients: req.Recipients,
		Subject:    req.Subject,
		Body:       req.Message,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"messageId": l.ID})
}

func (h *Handler) resendMessage(c *fiber.Ctx) error {
	l, err := h.service.Resend(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"messageId": l.ID, "attempts": l.Attempts})
}

func (h *Handler) getLogs(c *fiber.Ctx) error {
	var q logsQuery
	if err := httpx.BindQuery(c, &q); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	page := httpx.Pagination(c)

	logs, total, err := h.service.Logs(c.UserContext(), Filter{
		Channel: q.Channel,
		Status:  q.Status,
		Limit:   page.Limit,
		Offset:  page.Offset(),
	})
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"logs": logs, "total": total, "page": page.Page, "limit": page.Limit})
}

func (h *Handler) deliveryEvent(c *fiber.Ctx) error {
	var ev DeliveryEvent
	if err := json.Unmarshal(c.Body(), &ev); err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.service.ApplyDeliveryEvent(c.UserContext(), ev); err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, nil)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httpx.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidChannel), errors.Is(err, ErrNoRecipients),
		errors.Is(err, ErrTooManyRecipient), errors.Is(err, ErrEmptyBody):
		return httpx.Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDispatch):
		if h.logger != nil {
			h.logger.Error("send message failed", "error", err)
		}
		return httpx.Error(c, fiber.StatusInternalServerError, ErrDispatch.Error())
	}
	return httpx.Internal(c, h.logger, err)
}

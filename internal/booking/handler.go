package booking

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

// Handler delegates booking operations to the booking service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/bookings/slots", h.getSlots)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/bookings", h.createBooking)
	r.Get("/api/bookings", h.getBookings)
	r.Post("/api/bookings/:id/update-status", auth.RequireAdmin(), h.updateStatus)
	r.Get("/api/admin/bookings", auth.RequireAdmin(), h.listBookings)
}

type createBookingRequest struct {
	Date        string `json:"date" validate:"required"`
	Slot        string `json:"slot" validate:"required"`
	Service     string `json:"service" validate:"required,max=100"`
	ClientName  string `json:"clientName" validate:"required,max=200"`
	ClientEmail string `json:"clientEmail" validate:"required,email"`
	ClientPhone string `json:"clientPhone" validate:"omitempty,max=32"`
	Notes       string `json:"notes" validate:"omitempty,max=1000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type listQuery struct {
	Date   string `query:"date"`
	Status string `query:"status"`
}

func (h *Handler) getSlots(c *fiber.Ctx) error {
	date := c.Query("date")
	if date == "" {
		return httpx.Error(c, fiber.StatusBadRequest, "date is required")
	}
	slots, err := h.service.Slots(c.UserContext(), date)
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"date": date, "slots": slots})
}

func (h *Handler) createBooking(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	var req createBookingRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	created, err := h.service.Create(c.UserContext(), CreateInput{
		ProfileID:   profileID,
		Date:        req.Date,
		Slot:        req.Slot,
		Service:     req.Service,
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ClientPhone: req.ClientPhone,
		Notes:       req.Notes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.Created(c, fiber.Map{"booking": created})
}

func (h *Handler) getBookings(c *fiber.Ctx) error {
	profileID, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	bookings, err := h.service.ListOwned(c.UserContext(), profileID)
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"bookings": bookings})
}

func (h *Handler) updateStatus(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "invalid booking id")
	}
	var req updateStatusRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	actor, _ := auth.UserID(c)

	updated, err := h.service.UpdateStatus(c.UserContext(), actor, id, req.Status)
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"booking": updated})
}

func (h *Handler) listBookings(c *fiber.Ctx) error {
	var q listQuery
	if err := httpx.BindQuery(c, &q); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	bookings, err := h.service.List(c.UserContext(), Filter{Date: q.Date, Status: q.Status})
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"bookings": bookings})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return httpx.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrSlotTaken):
		return httpx.Error(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrPastDate), errors.Is(err, ErrInvalidSlot),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidTransition):
		return httpx.Error(c, fiber.StatusBadRequest, err.Error())
	}
	return httpx.Internal(c, h.logger, err)
}

package category

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

type createCategoryRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Slug      string `json:"slug" validate:"omitempty,max=100"`
	ImageURL  string `json:"imageUrl" validate:"omitempty,url"`
	SortOrder int    `json:"sortOrder"`
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return &Handler{service: s, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/categories", h.getCategories)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Post("/api/admin/categories", auth.RequireAdmin(), h.createCategory)
}

func (h *Handler) getCategories(c *fiber.Ctx) error {
	items, err := h.service.List(c.UserContext())
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"categories": items})
}

func (h *Handler) createCategory(c *fiber.Ctx) error {
	var req createCategoryRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}
	created, err := h.service.Create(c.UserContext(), Category{
		Name:      req.Name,
		Slug:      req.Slug,
		ImageURL:  req.ImageURL,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, ErrSlugExists) {
			return httpx.Error(c, fiber.StatusConflict, err.Error())
		}
		if errors.Is(err, ErrInvalidSlug) {
			return httpx.Error(c, fiber.StatusBadRequest, err.Error())
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.Created(c, fiber.Map{"category": created})
}

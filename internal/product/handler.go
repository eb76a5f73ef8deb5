package product

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

type productRequest struct {
	CategoryID  *int   `json:"categoryId" validate:"omitempty,min=1"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
	PriceCents  int64  `json:"priceCents" validate:"gte=0"`
	ImageURL    string `json:"imageUrl" validate:"omitempty,url"`
	Stock       int    `json:"stock" validate:"gte=0"`
	Active      *bool  `json:"active"`
}

func (r productRequest) toProduct() Product {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return Product{
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		PriceCents:  r.PriceCents,
		ImageURL:    r.ImageURL,
		Stock:       r.Stock,
		Active:      active,
	}
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Get("/api/products", h.getProducts)
	r.Get("/api/products/:id", h.getProduct)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	admin := r.Group("/api/admin/products", auth.RequireAdmin())
	admin.Post("/", h.createProduct)
	admin.Put("/:id", h.updateProduct)
	admin.Delete("/:id", h.deleteProduct)
}

func (h *Handler) getProducts(c *fiber.Ctx) error {
	page := httpx.Pagination(c)
	f := Filter{
		Query:      c.Query("q"),
		ActiveOnly: true,
		Limit:      page.Limit,
		Offset:     page.Offset(),
	}
	if raw := c.Query("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 1 {
			return httpx.Error(c, fiber.StatusBadRequest, "category must be a positive integer")
		}
		f.CategoryID = id
	}

	result, err := h.service.List(c.UserContext(), f)
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{
		"products": result.Products,
		"total":    result.Total,
		"page":     page.Page,
		"limit":    page.Limit,
	})
}

func (h *Handler) getProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "invalid product id")
	}

	p, err := h.service.GetActive(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"product": p})
}

func (h *Handler) createProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	created, err := h.service.Create(c.UserContext(), req.toProduct())
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.Created(c, fiber.Map{"product": created})
}

func (h *Handler) updateProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "invalid product id")
	}
	var req productRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	updated, err := h.service.Update(c.UserContext(), id, req.toProduct())
	if err != nil {
		return h.fail(c, err)
	}
	return httpx.OK(c, fiber.Map{"product": updated})
}

func (h *Handler) deleteProduct(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return httpx.Error(c, fiber.StatusBadRequest, "invalid product id")
	}
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrNotFound) {
		return httpx.Error(c, fiber.StatusNotFound, "product not found")
	}
	return httpx.Internal(c, h.logger, err)
}

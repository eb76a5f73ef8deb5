package profile

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/auth"
	"github.com/wichananm65/storefront-backend/internal/httpx"
)

type HandlerConfig struct {
	JWTSecret     string
	JWTExpire     time.Duration
	ProfileSecret string
}

type Handler struct {
	service *Service
	cfg     HandlerConfig
	logger  *slog.Logger
}

type createProfileRequest struct {
	ID       string `json:"id" validate:"omitempty,uuid"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Role     string `json:"role" validate:"omitempty,oneof=customer admin"`
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"fullName" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type signInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func NewHandler(service *Service, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if cfg.JWTExpire <= 0 {
		cfg.JWTExpire = 72 * time.Hour
	}
	return &Handler{service: service, cfg: cfg, logger: logger}
}

func (h *Handler) RegisterPublicRoutes(r fiber.Router) {
	r.Post("/api/createProfile", auth.RequireSecret(h.cfg.ProfileSecret), h.createProfile)
	r.Post("/api/auth/sign-up", h.signUp)
	r.Post("/api/auth/sign-in", h.signIn)
}

func (h *Handler) RegisterProtectedRoutes(r fiber.Router) {
	r.Get("/api/profile", h.getProfile)
	r.Get("/api/clients/search", auth.RequireAdmin(), h.searchClients)
}

func (h *Handler) createProfile(c *fiber.Ctx) error {
	var req createProfileRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	created, err := h.service.CreateProfile(c.UserContext(), "internal", CreateInput{
		ID:       req.ID,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return httpx.Error(c, fiber.StatusConflict, "profile already exists")
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.Created(c, fiber.Map{"profile": created})
}

func (h *Handler) signUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	created, err := h.service.SignUp(c.UserContext(), req.Email, req.Password, req.FullName, req.Phone)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return httpx.Error(c, fiber.StatusConflict, "email already exists")
		}
		return httpx.Internal(c, h.logger, err)
	}
	return h.respondWithToken(c, fiber.StatusCreated, created)
}

func (h *Handler) signIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := httpx.Bind(c, &req); err != nil {
		return httpx.Fail(c, h.logger, err)
	}

	p, err := h.service.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return httpx.Error(c, fiber.StatusUnauthorized, "invalid email or password")
		}
		return httpx.Internal(c, h.logger, err)
	}
	return h.respondWithToken(c, fiber.StatusOK, p)
}

func (h *Handler) respondWithToken(c *fiber.Ctx, status int, p Profile) error {
	token, err := auth.IssueToken(h.cfg.JWTSecret, auth.Claims{
		UserID: p.ID,
		Email:  p.Email,
		Role:   p.Role,
	}, h.cfg.JWTExpire)
	if err != nil {
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.Status(c, status, fiber.Map{"profile": p, "token": token})
}

// getProfile returns the profile of the authenticated user.
func (h *Handler) getProfile(c *fiber.Ctx) error {
	id, err := auth.UserID(c)
	if err != nil {
		return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	p, err := h.service.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return httpx.Error(c, fiber.StatusNotFound, "profile not found")
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"profile": p})
}

func (h *Handler) searchClients(c *fiber.Ctx) error {
	clients, err := h.service.SearchClients(c.UserContext(), c.Query("q"))
	if err != nil {
		if errors.Is(err, ErrQueryTooShort) {
			return httpx.Error(c, fiber.StatusBadRequest, err.Error())
		}
		return httpx.Internal(c, h.logger, err)
	}
	return httpx.OK(c, fiber.Map{"clients": clients})
}

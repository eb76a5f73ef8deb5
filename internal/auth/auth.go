// Package auth wires JWT authentication and shared-secret checks into Fiber.
package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/wichananm65/storefront-backend/internal/httpx"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	localsKey = "user"
)

// Claims is the identity carried by an issued token.
type Claims struct {
	UserID string
	Email  string
	Role   string
}

// Middleware validates HS256 bearer tokens and stores the parsed token in
// c.Locals("user").
func Middleware(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: []byte(secret),
		ContextKey: localsKey,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
		},
	})
}

// IssueToken signs a token for the given identity.
func IssueToken(secret string, claims Claims, ttl time.Duration) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": claims.UserID,
		"email":   claims.Email,
		"role":    claims.Role,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	return tok.SignedString([]byte(secret))
}

func mapClaims(c *fiber.Ctx) (jwt.MapClaims, bool) {
	tok, ok := c.Locals(localsKey).(*jwt.Token)
	if !ok || tok == nil {
		return nil, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	return claims, ok
}

// UserID extracts the user_id claim set by Middleware.
func UserID(c *fiber.Ctx) (string, error) {
	claims, ok := mapClaims(c)
	if !ok {
		return "", fiber.ErrUnauthorized
	}
	id, ok := claims["user_id"].(string)
	if !ok || id == "" {
		return "", fiber.ErrUnauthorized
	}
	return id, nil
}

// Role returns the role claim, or an empty string when there is none.
func Role(c *fiber.Ctx) string {
	claims, ok := mapClaims(c)
	if !ok {
		return ""
	}
	role, _ := claims["role"].(string)
	return role
}

// RequireUser rejects requests without an authenticated user.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := UserID(c); err != nil {
			return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return c.Next()
	}
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := UserID(c); err != nil {
			return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}
		if Role(c) != RoleAdmin {
			return httpx.Error(c, fiber.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}

// SecretMatches compares a presented secret with the expected one in
// constant time. An unset expected secret never matches.
func SecretMatches(presented, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}

// BearerToken returns the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) string {
	h := c.Get(fiber.HeaderAuthorization)
	const prefix = "Bearer "
	if len(h) < len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}

// RequireSecret guards internal endpoints with a shared bearer secret.
func RequireSecret(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !SecretMatches(BearerToken(c), expected) {
			return httpx.Error(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return c.Next()
	}
}

// Package testutil holds helpers shared by handler tests.
package testutil

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"

	"github.com/wichananm65/storefront-backend/internal/httpx"
)

// NewApp builds a Fiber app whose first middleware injects a *jwt.Token
// into locals when X-User-ID is present, mirroring what the JWT middleware
// does in production. X-User-Role sets the role claim.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: httpx.ErrorHandler(nil)})
	app.Use(IdentityMiddleware)
	return app
}

func IdentityMiddleware(c *fiber.Ctx) error {
	if id := c.Get("X-User-ID"); id != "" {
		claims := jwt.MapClaims{"user_id": id, "role": c.Get("X-User-Role")}
		c.Locals("user", &jwt.Token{Claims: claims, Valid: true})
	}
	return c.Next()
}

// Request describes a test request.
type Request struct {
	Method  string
	Path    string
	Body    string
	UserID  string
	Role    string
	Headers map[string]string
}

// Response is a decoded response.
type Response struct {
	Status int
	Body   map[string]any
	Raw    string
}

func Do(t *testing.T, app *fiber.App, r Request) Response {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.UserID != "" {
		req.Header.Set("X-User-ID", r.UserID)
	}
	if r.Role != "" {
		req.Header.Set("X-User-Role", r.Role)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	out := Response{Status: res.StatusCode, Raw: string(raw)}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out.Body)
	}
	return out
}

package webhook

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/wichananm65/storefront-backend/internal/httpx"
)

// GuardConfig configures Guard.
type GuardConfig struct {
	Secret    string
	Tolerance time.Duration
	// Headers are tried in order; the first non-empty one is used.
	Headers []string
	Now     func() time.Time
	Logger  *slog.Logger
}

// Guard returns a handler that rejects deliveries whose signature does not
// verify against the raw body or whose timestamp is stale.
func Guard(cfg GuardConfig) fiber.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Headers) == 0 {
		cfg.Headers = []string{"webhook-signature"}
	}
	return func(c *fiber.Ctx) error {
		var header string
		for _, name := range cfg.Headers {
			if header = c.Get(name); header != "" {
				break
			}
		}
		if cfg.Secret == "" || !Verify(string(c.Body()), header, cfg.Secret) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("webhook signature rejected", "path", c.Path())
			}
			return httpx.Error(c, fiber.StatusUnauthorized, "invalid signature")
		}
		if err := CheckFreshness(header, cfg.Now(), cfg.Tolerance); err != nil {
			return httpx.Error(c, fiber.StatusUnauthorized, "stale signature")
		}
		return c.Next()
	}
}

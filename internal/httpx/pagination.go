package httpx

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	// MaxPage keeps Offset well inside a Postgres integer.
	MaxPage = 1_000_000
)

// Page holds validated pagination parameters.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pagination reads ?page and ?limit. Missing or unparsable values take the
// defaults; limit is clamped to [1, MaxLimit] and page to [1, MaxPage].
func Pagination(c *fiber.Ctx) Page {
	return Clamp(c.Query("page"), c.Query("limit"))
}

func Clamp(page, limit string) Page {
	p := Page{Page: 1, Limit: DefaultLimit}
	if v, err := strconv.Atoi(page); err == nil && v > 1 {
		p.Page = min(v, MaxPage)
	}
	if v, err := strconv.Atoi(limit); err == nil {
		switch {
		case v < 1:
			p.Limit = 1
		case v > MaxLimit:
			p.Limit = MaxLimit
		default:
			p.Limit = v
		}
	}
	return p
}

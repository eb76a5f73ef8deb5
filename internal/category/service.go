package category

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/wichananm65/storefront-backend/internal/cache"
)

const (
	CacheKey = "categories:all"
	CacheTag = "categories"
)

// Service provides business logic for categories.
type Service struct {
	repo   Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewService(r Repository, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: r, cache: c, ttl: ttl, logger: logger}
}

// List returns all categories, served from the cache while fresh.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return cache.Remember(ctx, s.cache, CacheKey, s.ttl, []string{CacheTag}, s.repo.List)
}

// Create stores a category and drops the cached listing.
func (s *Service) Create(ctx context.Context, c Category) (Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Slug == "" {
		return Category{}, ErrInvalidSlug
	}
	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return Category{}, err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateTag(ctx, CacheTag); err != nil {
			s.logger.Warn("category cache invalidation failed", "error", err)
		}
	}
	return created, nil
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins alphanumeric runs with dashes.
func Slugify(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

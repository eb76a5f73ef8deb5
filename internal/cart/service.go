package cart

import (
	"context"
	"errors"
	"sort"

	"github.com/wichananm65/storefront-backend/internal/product"
)

// Catalog is the slice of the product service the cart needs.
type Catalog interface {
	GetActive(ctx context.Context, id int) (product.Product, error)
	GetMany(ctx context.Context, ids []int) (map[int]product.Product, error)
}

// Service orchestrates cart operations.
type Service struct {
	repo    Repository
	catalog Catalog
}

func NewService(repo Repository, catalog Catalog) *Service {
	return &Service{repo: repo, catalog: catalog}
}

// AddItem changes the quantity of productID by qty. Negative values remove
// units. Adding requires the product to be active; removing does not.
func (s *Service) AddItem(ctx context.Context, profileID string, productID, qty int) (Cart, error) {
	if qty == 0 {
		return Cart{}, ErrInvalidQuantity
	}
	if qty > 0 {
		if _, err := s.catalog.GetActive(ctx, productID); err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return Cart{}, ErrProductNotFound
			}
			return Cart{}, err
		}
	}
	items, err := s.repo.Adjust(ctx, profileID, productID, qty)
	if err != nil {
		return Cart{}, err
	}
	return s.enrich(ctx, items)
}

func (s *Service) View(ctx context.Context, profileID string) (Cart, error) {
	items, err := s.repo.Get(ctx, profileID)
	if err != nil {
		return Cart{}, err
	}
	return s.enrich(ctx, items)
}

// Items returns the raw product id to quantity map.
func (s *Service) Items(ctx context.Context, profileID string) (map[int]int, error) {
	return s.repo.Get(ctx, profileID)
}

func (s *Service) Clear(ctx context.Context, profileID string) error {
	return s.repo.Clear(ctx, profileID)
}

func (s *Service) enrich(ctx context.Context, items map[int]int) (Cart, error) {
	ids := make([]int, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return Cart{}, err
	}

	out := Cart{Items: make([]Item, 0, len(ids))}
	for _, id := range ids {
		item := Item{ProductID: id, Quantity: items[id]}
		if p, ok := products[id]; ok {
			item.Name = p.Name
			item.ImageURL = p.ImageURL
			item.PriceCents = p.PriceCents
			item.Available = p.Active
		}
		if item.Available {
			item.LineTotalCents = item.PriceCents * int64(item.Quantity)
			out.SubtotalCents += item.LineTotalCents
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

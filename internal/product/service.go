package product

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Page is one page of a product listing.
type Page struct {
	Products []Product `json:"products"`
	Total    int       `json:"total"`
}

func (s *Service) List(ctx context.Context, f Filter) (Page, error) {
	f.Query = strings.TrimSpace(f.Query)
	products, total, err := s.repo.List(ctx, f)
	if err != nil {
		return Page{}, err
	}
	return Page{Products: products, Total: total}, nil
}

func (s *Service) GetByID(ctx context.Context, id int) (Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetActive returns the product only when it is visible on the storefront.
func (s *Service) GetActive(ctx context.Context, id int) (Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !p.Active {
		return Product{}, ErrNotFound
	}
	return p, nil
}

// GetMany returns the products for ids keyed by id. Unknown ids are absent.
func (s *Service) GetMany(ctx context.Context, ids []int) (map[int]Product, error) {
	products, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int]Product, len(products))
	for _, p := range products {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, p Product) (Product, error) {
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, id int, p Product) (Product, error) {
	return s.repo.Update(ctx, id, p)
}

func (s *Service) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

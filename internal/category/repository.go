package category

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	ErrSlugExists  = errors.New("category slug already exists")
	ErrInvalidSlug = errors.New("category slug must contain letters or digits")
)

// Repository provides access to category rows.
type Repository interface {
	List(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, c Category) (Category, error)
}

type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Category
	nextID  int
	// Calls counts List invocations.
	Calls int
}

func NewInMemoryRepository(seed []Category) *InMemoryRepository {
	r := &InMemoryRepository{nextID: 1}
	for _, c := range seed {
		r.storage = append(r.storage, c)
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
	}
	return r
}

func (r *InMemoryRepository) List(_ context.Context) ([]Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	out := make([]Category, len(r.storage))
	copy(out, r.storage)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, c Category) (Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.storage {
		if existing.Slug == c.Slug {
			return Category{}, ErrSlugExists
		}
	}
	c.ID = r.nextID
	r.nextID++
	r.storage = append(r.storage, c)
	return c, nil
}

package cart

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must not be zero")
)

// Repository stores a quantity per product for each profile. Quantities
// are always positive; a line that drops to zero or below is removed.
type Repository interface {
	Get(ctx context.Context, profileID string) (map[int]int, error)
	Adjust(ctx context.Context, profileID string, productID, delta int) (map[int]int, error)
	Clear(ctx context.Context, profileID string) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[string]map[int]int
	// ClearErr, when set, is returned by Clear.
	ClearErr error
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{carts: make(map[string]map[int]int)}
}

func (r *InMemoryRepository) Get(_ context.Context, profileID string) (map[int]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyItems(r.carts[profileID]), nil
}

func (r *InMemoryRepository) Adjust(_ context.Context, profileID string, productID, delta int) (map[int]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, ok := r.carts[profileID]
	if !ok {
		items = make(map[int]int)
		r.carts[profileID] = items
	}
	applyDelta(items, productID, delta)
	return copyItems(items), nil
}

func (r *InMemoryRepository) Clear(_ context.Context, profileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ClearErr != nil {
		return r.ClearErr
	}
	delete(r.carts, profileID)
	return nil
}

func applyDelta(items map[int]int, productID, delta int) {
	items[productID] += delta
	if items[productID] <= 0 {
		delete(items, productID)
	}
}

func copyItems(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

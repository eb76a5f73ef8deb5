package product

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound = errors.New("product not found")
)

type Repository interface {
	// List returns one page of products and the total number matching f.
	List(ctx context.Context, f Filter) ([]Product, int, error)
	GetByID(ctx context.Context, id int) (Product, error)
	// GetByIDs returns the products that exist among ids, in no particular order.
	GetByIDs(ctx context.Context, ids []int) ([]Product, error)
	Create(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, id int, p Product) (Product, error)
	Delete(ctx context.Context, id int) error
}

// InMemoryRepository is a simple in-memory implementation useful for tests and
// seeding local data.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
	nextID  int
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{
		storage: make([]Product, 0, len(seed)),
		nextID:  1,
	}

	maxID := 0
	for _, p := range seed {
		r.storage = append(r.storage, p)
		if p.ID > maxID {
			maxID = p.ID
		}
	}

	r.nextID = maxID + 1
	return r
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Product, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(f.Query)
	matched := make([]Product, 0)
	for _, p := range r.storage {
		if f.ActiveOnly && !p.Active {
			continue
		}
		if f.CategoryID != 0 && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if f.Offset >= total {
		return []Product{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) GetByIDs(_ context.Context, ids []int) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	want := make(map[int]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]Product, 0, len(ids))
	for _, p := range r.storage {
		if want[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) Create(_ context.Context, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == 0 {
		p.ID = r.nextID
		r.nextID++
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	r.storage = append(r.storage, p)
	return p, nil
}

func (r *InMemoryRepository) Update(_ context.Context, id int, p Product) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			p.ID = id
			p.CreatedAt = r.storage[i].CreatedAt
			p.UpdatedAt = time.Now().UTC()
			r.storage[i] = p
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			r.storage = append(r.storage[:i], r.storage[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

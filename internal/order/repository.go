package order

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("cart contains unavailable products")
	// ErrStatusChanged means the order left the expected status before the
	// update landed.
	ErrStatusChanged = errors.New("order status changed concurrently")
)

type Repository interface {
	Create(ctx context.Context, o Order) (Order, error)
	GetByID(ctx context.Context, id int) (Order, error)
	ListByProfile(ctx context.Context, profileID string) ([]Order, error)
	SetPaymentRef(ctx context.Context, id int, ref string) error
	// UpdateStatus moves the order from one status to another and fails with
	// ErrStatusChanged when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int, from, to string) (Order, error)
}

type InMemoryRepository struct {
	mu     sync.RWMutex
	orders map[int]Order
	nextID int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{orders: make(map[int]Order), nextID: 1}
}

func (r *InMemoryRepository) Create(_ context.Context, o Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	o.CreatedAt, o.UpdatedAt = now, now
	r.orders[o.ID] = o
	return o, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *InMemoryRepository) ListByProfile(_ context.Context, profileID string) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.ProfileID == profileID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) SetPaymentRef(_ context.Context, id int, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentRef = ref
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id int, from, to string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	if o.Status != from {
		return Order{}, ErrStatusChanged
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	r.orders[id] = o
	return o, nil
}

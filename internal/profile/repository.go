package profile

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound           = errors.New("profile not found")
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrQueryTooShort      = errors.New("query must be at least 3 characters")
)

type Repository interface {
	Create(ctx context.Context, p Profile) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	GetByEmail(ctx context.Context, email string) (Profile, error)
	// Search matches q case-insensitively against name, email and phone.
	Search(ctx context.Context, q string, limit int) ([]Profile, error)
}

// InMemoryRepository is a simple in-memory implementation useful for tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Profile
	// CreateErr, when set, is returned by Create.
	CreateErr error
}

func NewInMemoryRepository(seed []Profile) *InMemoryRepository {
	r := &InMemoryRepository{storage: make(map[string]Profile, len(seed))}
	for _, p := range seed {
		r.storage[p.ID] = p
	}
	return r
}

func (r *InMemoryRepository) Create(_ context.Context, p Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return Profile{}, r.CreateErr
	}
	for _, existing := range r.storage {
		if strings.EqualFold(existing.Email, p.Email) {
			return Profile{}, ErrEmailExists
		}
	}
	if _, ok := r.storage[p.ID]; ok {
		return Profile{}, ErrEmailExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	r.storage[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.storage[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (r *InMemoryRepository) Search(_ context.Context, q string, limit int) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(q)
	out := make([]Profile, 0)
	for _, p := range r.storage {
		if strings.Contains(strings.ToLower(p.FullName), needle) ||
			strings.Contains(strings.ToLower(p.Email), needle) ||
			strings.Contains(p.Phone, needle) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

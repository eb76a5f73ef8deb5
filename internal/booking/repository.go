package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound          = errors.New("booking not found")
	ErrSlotTaken         = errors.New("slot is already booked")
	ErrInvalidSlot       = errors.New("slot is not offered")
	ErrInvalidDate       = errors.New("date must be YYYY-MM-DD")
	ErrPastDate          = errors.New("date is in the past")
	ErrInvalidStatus     = errors.New("unknown booking status")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

type Repository interface {
	Create(ctx context.Context, b Booking) (Booking, error)
	GetByID(ctx context.Context, id int) (Booking, error)
	// TakenSlots returns the slots of non-cancelled bookings on date.
	TakenSlots(ctx context.Context, date string) ([]string, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	// UpdateStatus applies the change only while the booking still has status
	// from; otherwise it returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id int, from, to string) (Booking, error)
	AttachDeposit(ctx context.Context, id int, cents int64, ref string) error
}

// InMemoryRepository enforces the same one-active-booking-per-slot rule as
// the partial unique index in Postgres.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[int]Booking
	nextID   int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bookings: make(map[int]Booking), nextID: 1}
}

func (r *InMemoryRepository) Create(_ context.Context, b Booking) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if existing.Date == b.Date && existing.Slot == b.Slot && existing.Status != StatusCancelled {
			return Booking{}, ErrSlotTaken
		}
	}
	b.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	r.bookings[b.ID] = b
	return b, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id int) (Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return b, nil
}

func (r *InMemoryRepository) TakenSlots(_ context.Context, date string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0)
	for _, b := range r.bookings {
		if b.Date == date && b.Status != StatusCancelled {
			out = append(out, b.Slot)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Booking, 0)
	for _, b := range r.bookings {
		if f.Date != "" && b.Date != f.Date {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.ProfileID != "" && b.ProfileID != f.ProfileID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Slot < out[j].Slot
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id int, from, to string) (Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	if b.Status != from {
		return Booking{}, ErrInvalidTransition
	}
	if from == StatusCancelled {
		for otherID, other := range r.bookings {
			if otherID != id && other.Date == b.Date && other.Slot == b.Slot && other.Status != StatusCancelled {
				return Booking{}, ErrSlotTaken
			}
		}
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	r.bookings[id] = b
	return b, nil
}

func (r *InMemoryRepository) AttachDeposit(_ context.Context, id int, cents int64, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.DepositCents = cents
	b.PaymentRef = ref
	b.UpdatedAt = time.Now().UTC()
	r.bookings[id] = b
	return nil
}

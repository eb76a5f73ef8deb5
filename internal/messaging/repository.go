package messaging

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"time"
)

var (
	ErrNotFound         = errors.New("message not found")
	ErrInvalidID        = errors.New("message id must be a uuid")
	ErrInvalidChannel   = errors.New("channel must be one of [email sms]")
	ErrNoRecipients     = errors.New("recipients is required")
	ErrTooManyRecipient = errors.New("recipients must be at most 50")
	ErrEmptyBody        = errors.New("message is required")
)

type Repository interface {
	Create(ctx context.Context, l Log) (Log, error)
	GetByID(ctx context.Context, id string) (Log, error)
	List(ctx context.Context, f Filter) ([]Log, int, error)
	// RecordAttempt stores the outcome of one dispatch and bumps attempts.
	RecordAttempt(ctx context.Context, id, status, providerID, errMsg string) (Log, error)
	// UpdateByProviderID applies a delivery event to the logs carrying
	// providerID whose status may still move to status, and reports how many
	// rows changed.
	UpdateByProviderID(ctx context.Context, providerID, status, errMsg string) (int, error)
}

type InMemoryRepository struct {
	mu   sync.RWMutex
	logs map[string]Log
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{logs: make(map[string]Log)}
}

func (r *InMemoryRepository) Create(_ context.Context, l Log) (Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	l.Recipients = slices.Clone(l.Recipients)
	l.CreatedAt, l.UpdatedAt = now, now
	r.logs[l.ID] = l
	return l, nil
}

func (r *InMemoryRepository) GetByID(_ context.Context, id string) (Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.logs[id]
	if !ok {
		return Log{}, ErrNotFound
	}
	return l, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Log, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]Log, 0)
	for _, l := range r.logs {
		if f.Channel != "" && l.Channel != f.Channel {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		matched = append(matched, l)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(f.Offset, total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return matched[start:end], total, nil
}

func (r *InMemoryRepository) RecordAttempt(_ context.Context, id, status, providerID, errMsg string) (Log, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[id]
	if !ok {
		return Log{}, ErrNotFound
	}
	l.Status = status
	l.ProviderID = providerID
	l.Error = errMsg
	l.Attempts++
	l.UpdatedAt = time.Now().UTC()
	r.logs[id] = l
	return l, nil
}

func (r *InMemoryRepository) UpdateByProviderID(_ context.Context, providerID, status, errMsg string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, l := range r.logs {
		if providerID == "" || l.ProviderID != providerID || !slices.Contains(eventSources[status], l.Status) {
			continue
		}
		l.Status = status
		l.Error = errMsg
		l.UpdatedAt = time.Now().UTC()
		r.logs[id] = l
		n++
	}
	return n, nil
}

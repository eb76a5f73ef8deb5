package booking

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/wichananm65/storefront-backend/internal/audit"
	"github.com/wichananm65/storefront-backend/internal/cache"
	"github.com/wichananm65/storefront-backend/internal/mq"
)

// Options configures the booking service.
type Options struct {
	Slots    []string
	Cache    cache.Cache
	CacheTTL time.Duration
	Audit    audit.Recorder
	Events   mq.EventPublisher
	Logger   *slog.Logger
	Now      func() time.Time
}

// Service provides business logic for bookings.
type Service struct {
	repo     Repository
	slots    []string
	cache    cache.Cache
	cacheTTL time.Duration
	audit    audit.Recorder
	events   mq.EventPublisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:     repo,
		slots:    slices.Clone(opts.Slots),
		cache:    opts.Cache,
		cacheTTL: opts.CacheTTL,
		audit:    opts.Audit,
		events:   opts.Events,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.now == nil {
		s.now = time.Now
	}
	slices.Sort(s.slots)
	return s
}

func slotsKey(date string) string { return "slots:" + date }
func dateTag(date string) string  { return "bookings:" + date }

// checkDate rejects malformed dates and dates before today.
func (s *Service) checkDate(date string) error {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return ErrInvalidDate
	}
	today := s.now().Format(DateLayout)
	if d.Format(DateLayout) < today {
		return ErrPastDate
	}
	return nil
}

// Slots lists the configured openings for date and whether each is free.
func (s *Service) Slots(ctx context.Context, date string) ([]Slot, error) {
	if err := s.checkDate(date); err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, slotsKey(date), s.cacheTTL, []string{dateTag(date)}, func(ctx context.Context) ([]Slot, error) {
		taken, err := s.repo.TakenSlots(ctx, date)
		if err != nil {
			return nil, err
		}
		out := make([]Slot, 0, len(s.slots))
		for _, t := range s.slots {
			out = append(out, Slot{Time: t, Available: !slices.Contains(taken, t)})
		}
		return out, nil
	})
}

type CreateInput struct {
	ProfileID   string
	Date        string
	Slot        string
	Service     string
	ClientName  string
	ClientEmail string
	ClientPhone string
	Notes       string
}

// Create books a pending slot. The store rejects a second active booking for
// the same date and slot.
func (s *Service) Create(ctx context.Context, in CreateInput) (Booking, error) {
	if err := s.checkDate(in.Date); err != nil {
		return Booking{}, err
	}
	if !slices.Contains(s.slots, in.Slot) {
		return Booking{}, ErrInvalidSlot
	}

	created, err := s.repo.Create(ctx, Booking{
		ProfileID:   in.ProfileID,
		ClientName:  in.ClientName,
		ClientEmail: in.ClientEmail,
		ClientPhone: in.ClientPhone,
		Service:     in.Service,
		Date:        in.Date,
		Slot:        in.Slot,
		Status:      StatusPending,
		Notes:       in.Notes,
	})
	if err != nil {
		return Booking{}, err
	}
	s.invalidate(ctx, created.Date)
	s.publish(ctx, created)
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id int) (Booking, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]Booking, error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, ErrInvalidStatus
	}
	if f.Date != "" {
		if _, err := time.Parse(DateLayout, f.Date); err != nil {
			return nil, ErrInvalidDate
		}
	}
	return s.repo.List(ctx, f)
}

// ListOwned returns the bookings made by profileID.
func (s *Service) ListOwned(ctx context.Context, profileID string) ([]Booking, error) {
	return s.repo.List(ctx, Filter{ProfileID: profileID})
}

// UpdateStatus moves a booking along pending -> confirmed -> completed, with
// cancellation allowed from either open state. The audit entry and event are
// best-effort.
func (s *Service) UpdateStatus(ctx context.Context, actor string, id int, status string) (Booking, error) {
	if !validStatus(status) {
		return Booking{}, ErrInvalidStatus
	}
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if !CanTransition(before.Status, status) {
		return Booking{}, ErrInvalidTransition
	}
	updated, err := s.repo.UpdateStatus(ctx, id, before.Status, status)
	if err != nil {
		return Booking{}, err
	}

	s.invalidate(ctx, updated.Date)
	if s.audit != nil {
		err := s.audit.Record(ctx, audit.Entry{
			Actor:    actor,
			Action:   audit.ActionBookingStatusChanged,
			Entity:   "booking",
			EntityID: strconv.Itoa(id),
			Metadata: map[string]any{"from": before.Status, "to": status},
		})
		if err != nil {
			s.logger.Error("audit log for booking status failed", "booking_id", id, "error", err)
		}
	}
	s.publish(ctx, updated)
	return updated, nil
}

func (s *Service) AttachDeposit(ctx context.Context, id int, cents int64, ref string) error {
	return s.repo.AttachDeposit(ctx, id, cents, ref)
}

// ConfirmDeposit confirms a pending booking once its deposit is paid. Any
// other state is left alone.
func (s *Service) ConfirmDeposit(ctx context.Context, id int, actor string) (Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if b.Status != StatusPending {
		return b, nil
	}
	confirmed, err := s.UpdateStatus(ctx, actor, id, StatusConfirmed)
	if errors.Is(err, ErrInvalidTransition) {
		return s.repo.GetByID(ctx, id)
	}
	return confirmed, err
}

func (s *Service) invalidate(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTag(ctx, dateTag(date)); err != nil {
		s.logger.Warn("slot cache invalidation failed", "date", date, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, b Booking) {
	if s.events == nil {
		return
	}
	key := mq.BookingKey(b.Status)
	if b.Status == StatusPending {
		key = mq.RKBookingCreated
	}
	err := s.events.PublishJSON(ctx, key, mq.BookingEvent{
		BookingID:   b.ID,
		Status:      b.Status,
		Service:     b.Service,
		Date:        b.Date,
		Slot:        b.Slot,
		ClientName:  b.ClientName,
		ClientEmail: b.ClientEmail,
		ClientPhone: b.ClientPhone,
	})
	if err != nil {
		s.logger.Error("publish booking event failed", "booking_id", b.ID, "key", key, "error", err)
	}
}

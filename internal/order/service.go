package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/wichananm65/storefront-backend/internal/audit"
	"github.com/wichananm65/storefront-backend/internal/product"
)

// CartSource is the part of the cart service checkout needs.
type CartSource interface {
	Items(ctx context.Context, profileID string) (map[int]int, error)
	Clear(ctx context.Context, profileID string) error
}

// Catalog prices cart lines.
type Catalog interface {
	GetMany(ctx context.Context, ids []int) (map[int]product.Product, error)
}

// Service provides business logic for orders.
type Service struct {
	repo    Repository
	carts   CartSource
	catalog Catalog
	audit   audit.Recorder
	logger  *slog.Logger
}

func NewService(repo Repository, carts CartSource, catalog Catalog, recorder audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, carts: carts, catalog: catalog, audit: recorder, logger: logger}
}

// Checkout turns the profile's cart into a pending order. Prices come from
// the catalog, never from the client. Clearing the cart afterwards is
// best-effort.
func (s *Service) Checkout(ctx context.Context, profileID string, shippingCents int64) (Order, error) {
	items, err := s.carts.Items(ctx, profileID)
	if err != nil {
		return Order{}, err
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	ids := make([]int, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	products, err := s.catalog.GetMany(ctx, ids)
	if err != nil {
		return Order{}, err
	}

	o := Order{
		ProfileID:     profileID,
		Items:         make([]Line, 0, len(ids)),
		ShippingCents: shippingCents,
		Status:        StatusPending,
	}
	for _, id := range ids {
		p, ok := products[id]
		if !ok || !p.Active {
			return Order{}, fmt.Errorf("%w: product %d", ErrProductUnavailable, id)
		}
		qty := items[id]
		o.Items = append(o.Items, Line{ProductID: id, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: qty})
		o.SubtotalCents += p.PriceCents * int64(qty)
	}
	o.TotalCents = o.SubtotalCents + o.ShippingCents

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return Order{}, err
	}
	if err := s.carts.Clear(ctx, profileID); err != nil {
		s.logger.Error("clearing cart after checkout failed", "profile_id", profileID, "order_id", created.ID, "error", err)
	}
	return created, nil
}

func (s *Service) List(ctx context.Context, profileID string) ([]Order, error) {
	return s.repo.ListByProfile(ctx, profileID)
}

// GetOwned returns the order only when it belongs to profileID.
func (s *Service) GetOwned(ctx context.Context, profileID string, id int) (Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.ProfileID != profileID {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (s *Service) GetByID(ctx context.Context, id int) (Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) AttachPayment(ctx context.Context, id int, ref string) error {
	return s.repo.SetPaymentRef(ctx, id, ref)
}

// MarkPaid records a successful charge. Paid is terminal.
func (s *Service) MarkPaid(ctx context.Context, id int, actor string) (Order, error) {
	return s.setStatus(ctx, id, StatusPaid, "", actor)
}

// MarkFailed records a failed charge. The order is returned unchanged when
// it is already paid or when chargeID is not its current payment reference,
// so a late event for an abandoned charge cannot undo a later payment.
func (s *Service) MarkFailed(ctx context.Context, id int, chargeID, actor string) (Order, error) {
	return s.setStatus(ctx, id, StatusFailed, chargeID, actor)
}

const statusAttempts = 3

func (s *Service) setStatus(ctx context.Context, id int, status, chargeID, actor string) (Order, error) {
	for attempt := 1; ; attempt++ {
		before, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return Order{}, err
		}
		if before.Status == status || before.Status == StatusPaid {
			return before, nil
		}
		if chargeID != "" && before.PaymentRef != "" && before.PaymentRef != chargeID {
			s.logger.Info("ignoring outcome of superseded charge", "order_id", id, "charge_id", chargeID, "payment_ref", before.PaymentRef)
			return before, nil
		}

		updated, err := s.repo.UpdateStatus(ctx, id, before.Status, status)
		if errors.Is(err, ErrStatusChanged) && attempt < statusAttempts {
			continue
		}
		if err != nil {
			return Order{}, err
		}
		if s.audit != nil {
			err := s.audit.Record(ctx, audit.Entry{
				Actor:    actor,
				Action:   audit.ActionOrderStatusChanged,
				Entity:   "order",
				EntityID: strconv.Itoa(id),
				Metadata: map[string]any{"from": before.Status, "to": status},
			})
			if err != nil {
				s.logger.Error("audit log for order status failed", "order_id", id, "error", err)
			}
		}
		return updated, nil
	}
}

// IsUnavailable reports whether err came from a cart line that cannot be sold.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrProductUnavailable)
}

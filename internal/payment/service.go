package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/wichananm65/storefront-backend/internal/booking"
	"github.com/wichananm65/storefront-backend/internal/mq"
	"github.com/wichananm65/storefront-backend/internal/order"
)

// Charge targets, carried in the charge metadata.
const (
	TargetOrder   = "order"
	TargetBooking = "booking"
)

// WebhookActor is the audit actor for status changes caused by webhooks.
const WebhookActor = "payment-webhook"

var (
	ErrMissingMethod   = errors.New("cardToken or sourceType is required")
	ErrAlreadyPaid     = errors.New("order is already paid")
	ErrNotPayable      = errors.New("booking does not accept a deposit")
	ErrUnverifiedEvent = errors.New("event could not be verified")
)

type Orders interface {
	GetByID(ctx context.Context, id int) (order.Order, error)
	AttachPayment(ctx context.Context, id int, ref string) error
	MarkPaid(ctx context.Context, id int, actor string) (order.Order, error)
	MarkFailed(ctx context.Context, id int, chargeID, actor string) (order.Order, error)
}

type Bookings interface {
	GetByID(ctx context.Context, id int) (booking.Booking, error)
	AttachDeposit(ctx context.Context, id int, cents int64, ref string) error
	ConfirmDeposit(ctx context.Context, id int, actor string) (booking.Booking, error)
}

// EmailLookup resolves a profile id to its email address.
type EmailLookup interface {
	Email(ctx context.Context, profileID string) (string, error)
}

type Config struct {
	Currency  string
	ReturnURI string
}

// Method is how the customer pays: a tokenized card or an offsite source type.
type Method struct {
	CardToken  string
	SourceType string
}

// Result is what the client needs to finish a charge.
type Result struct {
	ChargeID     string `json:"chargeId"`
	Status       string `json:"status"`
	AuthorizeURI string `json:"authorizeUri"`
}

type Service struct {
	processor Processor
	orders    Orders
	bookings  Bookings
	emails    EmailLookup
	events    mq.EventPublisher
	cfg       Config
	logger    *slog.Logger
}

func NewService(p Processor, orders Orders, bookings Bookings, emails EmailLookup, events mq.EventPublisher, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Currency == "" {
		cfg.Currency = "thb"
	}
	return &Service{processor: p, orders: orders, bookings: bookings, emails: emails, events: events, cfg: cfg, logger: logger}
}

// ForOrder charges the order total. Orders that belong to someone else are
// reported as not found.
func (s *Service) ForOrder(ctx context.Context, profileID string, orderID int, m Method) (Result, error) {
	if m.CardToken == "" && m.SourceType == "" {
		return Result{}, ErrMissingMethod
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if o.ProfileID != profileID {
		return Result{}, order.ErrNotFound
	}
	if o.Status == order.StatusPaid {
		return Result{}, ErrAlreadyPaid
	}

	ch, err := s.processor.CreateCharge(ctx, s.request(o.TotalCents, m, fmt.Sprintf("Order #%d", o.ID), TargetOrder, o.ID))
	if err != nil {
		return Result{}, err
	}
	if err := s.orders.AttachPayment(ctx, o.ID, ch.ID); err != nil {
		s.logger.Error("storing order payment reference failed", "order_id", o.ID, "charge_id", ch.ID, "error", err)
	}
	if err := s.settle(ctx, ch, profileID); err != nil {
		s.logger.Error("settling order charge failed", "order_id", o.ID, "charge_id", ch.ID, "error", err)
	}
	return resultOf(ch), nil
}

// Deposit charges a booking deposit. Customers may only pay for their own
// bookings; admins may pay for any.
func (s *Service) Deposit(ctx context.Context, profileID string, isAdmin bool, bookingID int, amountCents int64, m Method) (Result, error) {
	if m.CardToken == "" && m.SourceType == "" {
		return Result{}, ErrMissingMethod
	}
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	if !isAdmin && b.ProfileID != profileID {
		return Result{}, booking.ErrNotFound
	}
	if b.Status == booking.StatusCancelled || b.Status == booking.StatusCompleted {
		return Result{}, ErrNotPayable
	}

	ch, err := s.processor.CreateCharge(ctx, s.request(amountCents, m, fmt.Sprintf("Deposit for booking #%d", b.ID), TargetBooking, b.ID))
	if err != nil {
		return Result{}, err
	}
	if err := s.bookings.AttachDeposit(ctx, b.ID, amountCents, ch.ID); err != nil {
		s.logger.Error("storing booking deposit failed", "booking_id", b.ID, "charge_id", ch.ID, "error", err)
	}
	if err := s.settle(ctx, ch, profileID); err != nil {
		s.logger.Error("settling deposit charge failed", "booking_id", b.ID, "charge_id", ch.ID, "error", err)
	}
	return resultOf(ch), nil
}

// HandleEvent re-fetches a webhook event from the processor and settles the
// charge it refers to. Events other than charge.complete are ignored.
func (s *Service) HandleEvent(ctx context.Context, eventID string) error {
	ev, err := s.processor.RetrieveEvent(ctx, eventID)
	if err != nil {
		s.logger.Warn("payment webhook event retrieval failed", "event_id", eventID, "error", err)
		return ErrUnverifiedEvent
	}
	if ev.Key != EventChargeComplete || ev.Charge == nil {
		s.logger.Debug("ignoring payment event", "event_id", eventID, "key", ev.Key)
		return nil
	}
	return s.settle(ctx, *ev.Charge, WebhookActor)
}

func (s *Service) request(amount int64, m Method, description, target string, id int) ChargeRequest {
	return ChargeRequest{
		Amount:      amount,
		Currency:    s.cfg.Currency,
		CardToken:   m.CardToken,
		SourceType:  m.SourceType,
		ReturnURI:   s.cfg.ReturnURI,
		Description: description,
		Metadata:    map[string]string{"target": target, "target_id": strconv.Itoa(id)},
	}
}

// settle applies a final charge status to its target and publishes the
// outcome. Charges still pending are left for the webhook.
func (s *Service) settle(ctx context.Context, ch Charge, actor string) error {
	var paid bool
	switch ch.Status {
	case ChargeSuccessful:
		paid = true
	case ChargeFailed:
	default:
		return nil
	}

	target := ch.Metadata["target"]
	id, err := strconv.Atoi(ch.Metadata["target_id"])
	if err != nil {
		return fmt.Errorf("charge %s has no usable target_id", ch.ID)
	}

	evt := mq.PaymentEvent{
		Target:         target,
		TargetID:       id,
		ChargeID:       ch.ID,
		Amount:         ch.Amount,
		Currency:       ch.Currency,
		FailureCode:    ch.FailureCode,
		FailureMessage: ch.FailureMessage,
	}

	switch target {
	case TargetOrder:
		var o order.Order
		if paid {
			o, err = s.orders.MarkPaid(ctx, id, actor)
		} else {
			o, err = s.orders.MarkFailed(ctx, id, ch.ID, actor)
		}
		if err != nil {
			return err
		}
		if !paid && o.Status != order.StatusFailed {
			s.logger.Info("failed charge no longer applies to order", "order_id", id, "charge_id", ch.ID, "status", o.Status)
			return nil
		}
		if s.emails != nil {
			if evt.Email, err = s.emails.Email(ctx, o.ProfileID); err != nil {
				s.logger.Warn("no email for order owner", "order_id", id, "error", err)
			}
		}
	case TargetBooking:
		var b booking.Booking
		if paid {
			b, err = s.bookings.ConfirmDeposit(ctx, id, actor)
		} else {
			b, err = s.bookings.GetByID(ctx, id)
		}
		if err != nil {
			return err
		}
		if !paid && (b.Status != booking.StatusPending || (b.PaymentRef != "" && b.PaymentRef != ch.ID)) {
			s.logger.Info("failed charge no longer applies to booking", "booking_id", id, "charge_id", ch.ID, "status", b.Status)
			return nil
		}
		evt.Email = b.ClientEmail
	default:
		return fmt.Errorf("charge %s has unknown target %q", ch.ID, target)
	}

	key := mq.RKPaymentFailed
	if paid {
		key = mq.RKPaymentPaid
	}
	if s.events != nil {
		if err := s.events.PublishJSON(ctx, key, evt); err != nil {
			s.logger.Error("publish payment event failed", "key", key, "charge_id", ch.ID, "error", err)
		}
	}
	return nil
}

func resultOf(ch Charge) Result {
	return Result{ChargeID: ch.ID, Status: ch.Status, AuthorizeURI: ch.AuthorizeURI}
}

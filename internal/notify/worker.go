// Package notify turns broker events into customer emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/wichananm65/storefront-backend/internal/messaging"
	"github.com/wichananm65/storefront-backend/internal/mq"
)

// ErrMalformed marks deliveries that can never be processed.
var ErrMalformed = errors.New("malformed event")

// Bindings are the routing keys the worker subscribes to.
var Bindings = []string{"booking.*", "payment.*"}

type Sender interface {
	Send(ctx context.Context, m messaging.Message) (messaging.Log, error)
}

type Worker struct {
	sender Sender
	logger *slog.Logger
}

func NewWorker(sender Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{sender: sender, logger: logger}
}

// Run consumes deliveries until ctx is done or the channel closes. Handled
// deliveries are acked and malformed ones go to the dead-letter exchange. A
// dispatch failure is requeued once; failing again on redelivery also
// dead-letters the event.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			w.process(ctx, d)
		}
	}
}

func (w *Worker) process(ctx context.Context, d amqp.Delivery) {
	err := w.handle(ctx, d.RoutingKey, d.Body, messageID(d))
	switch {
	case err == nil:
		if ackErr := d.Ack(false); ackErr != nil {
			w.logger.Error("ack failed", "key", d.RoutingKey, "error", ackErr)
		}
	case errors.Is(err, ErrMalformed):
		w.logger.Warn("dropping malformed event", "key", d.RoutingKey, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			w.logger.Error("nack failed", "key", d.RoutingKey, "error", nackErr)
		}
	case d.Redelivered:
		w.logger.Error("notification failed again, dead-lettering", "key", d.RoutingKey, "error", err)
		if nackErr := d.Nack(false, false); nackErr != nil {
			w.logger.Error("nack failed", "key", d.RoutingKey, "error", nackErr)
		}
	default:
		w.logger.Error("notification failed, requeueing", "key", d.RoutingKey, "error", err)
		if nackErr := d.Nack(false, true); nackErr != nil {
			w.logger.Error("nack failed", "key", d.RoutingKey, "error", nackErr)
		}
	}
}

// messageID names the message log row for a delivery so a redelivered event
// reuses it. Events published without a MessageId are keyed by content.
func messageID(d amqp.Delivery) string {
	if id, err := uuid.Parse(d.MessageId); err == nil {
		return id.String()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(d.RoutingKey+"\n"), d.Body...)).String()
}

// Handle renders and sends the notification for one event. Events without
// a recipient and unknown keys are skipped.
func (w *Worker) Handle(ctx context.Context, key string, body []byte) error {
	return w.handle(ctx, key, body, "")
}

func (w *Worker) handle(ctx context.Context, key string, body []byte, id string) error {
	var (
		msg messaging.Message
		err error
	)
	switch {
	case strings.HasPrefix(key, "booking."):
		msg, err = w.bookingMessage(key, body)
	case key == mq.RKPaymentPaid || key == mq.RKPaymentFailed:
		msg, err = w.paymentMessage(key, body)
	default:
		w.logger.Info("skipping unknown event", "key", key)
		return nil
	}
	if err != nil {
		return err
	}
	if len(msg.Recipients) == 0 {
		w.logger.Warn("event has no recipient", "key", key)
		return nil
	}

	msg.ID = id
	l, err := w.sender.Send(ctx, msg)
	if err != nil {
		return err
	}
	w.logger.Info("notification sent", "key", key, "message_id", l.ID)
	return nil
}

func (w *Worker) bookingMessage(key string, body []byte) (messaging.Message, error) {
	ev, err := mq.Decode[mq.BookingEvent](body)
	if err != nil {
		return messaging.Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if ev.BookingID == 0 {
		return messaging.Message{}, fmt.Errorf("%w: booking_id missing", ErrMalformed)
	}

	when := fmt.Sprintf("%s at %s", ev.Date, ev.Slot)
	var subject, text string
	switch key {
	case mq.RKBookingCreated:
		subject = "We received your booking"
		text = fmt.Sprintf("Your %s booking #%d for %s is pending confirmation.", ev.Service, ev.BookingID, when)
	case mq.RKBookingConfirmed:
		subject = "Your booking is confirmed"
		text = fmt.Sprintf("Your %s booking #%d for %s is confirmed. See you then!", ev.Service, ev.BookingID, when)
	case mq.RKBookingCompleted:
		subject = "Thanks for visiting"
		text = fmt.Sprintf("Your %s booking #%d is complete. Thank you for coming in.", ev.Service, ev.BookingID)
	case mq.RKBookingCancelled:
		subject = "Your booking was cancelled"
		text = fmt.Sprintf("Your %s booking #%d for %s has been cancelled.", ev.Service, ev.BookingID, when)
	default:
		return messaging.Message{}, fmt.Errorf("%w: unknown booking key %s", ErrMalformed, key)
	}
	return email(ev.ClientEmail, subject, greeting(ev.ClientName)+text), nil
}

func (w *Worker) paymentMessage(key string, body []byte) (messaging.Message, error) {
	ev, err := mq.Decode[mq.PaymentEvent](body)
	if err != nil {
		return messaging.Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	what := fmt.Sprintf("order #%d", ev.TargetID)
	if ev.Target == "booking" {
		what = fmt.Sprintf("the deposit for booking #%d", ev.TargetID)
	}
	amount := FormatAmount(ev.Amount, ev.Currency)

	if key == mq.RKPaymentPaid {
		return email(ev.Email, "Payment received",
			fmt.Sprintf("Hi, we received your payment of %s for %s.", amount, what)), nil
	}
	text := fmt.Sprintf("Hi, your payment of %s for %s did not go through.", amount, what)
	if reason := strings.TrimSpace(ev.FailureMessage); reason != "" {
		text += " Reason: " + reason + "."
	} else if ev.FailureCode != "" {
		text += " Reason: " + ev.FailureCode + "."
	}
	return email(ev.Email, "Payment failed", text), nil
}

func email(to, subject, body string) messaging.Message {
	m := messaging.Message{Channel: messaging.ChannelEmail, Subject: subject, Body: body}
	if to != "" {
		m.Recipients = []string{to}
	}
	return m
}

func greeting(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "Hi, "
	}
	return "Hi " + name + ", "
}

// FormatAmount renders minor units as "1,049.00 THB".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign, minor = "-", -minor
	}
	whole := fmt.Sprintf("%d", minor/100)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := fmt.Sprintf("%s%s.%02d", sign, b.String(), minor%100)
	if currency != "" {
		out += " " + strings.ToUpper(currency)
	}
	return out
}

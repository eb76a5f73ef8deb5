package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ErrDispatch wraps provider failures. The log row records the cause.
var ErrDispatch = errors.New("message dispatch failed")

// Delivery event types sent by the email provider.
const (
	EventEmailSent      = "email.sent"
	EventEmailDelivered = "email.delivered"
	EventEmailBounced   = "email.bounced"
	EventEmailDelayed   = "email.delivery_delayed"
)

// DeliveryEvent is the webhook body posted by the email provider.
type DeliveryEvent struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
	Data      struct {
		EmailID string   `json:"email_id"`
		To      []string `json:"to"`
		Bounce  *struct {
			Message string `json:"message"`
		} `json:"bounce,omitempty"`
	} `json:"data"`
}

type Service struct {
	repo      Repository
	providers map[string]Provider
	logger    *slog.Logger
}

// NewService dispatches each channel through its provider. Channels missing
// from providers fall back to LogProvider.
func NewService(repo Repository, providers map[string]Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	ps := make(map[string]Provider, 2)
	for _, ch := range []string{ChannelEmail, ChannelSMS} {
		if p, ok := providers[ch]; ok && p != nil {
			ps[ch] = p
		} else {
			ps[ch] = LogProvider{Logger: logger}
		}
	}
	return &Service{repo: repo, providers: ps, logger: logger}
}

// Send logs the message as queued, dispatches it and records the outcome.
// The returned log is valid whenever the row was written, even when the
// error wraps ErrDispatch. A message whose ID is already logged reuses that
// row and is dispatched again only if its last attempt failed.
func (s *Service) Send(ctx context.Context, m Message) (Log, error) {
	if err := check(m); err != nil {
		return Log{}, err
	}
	id := m.ID
	if id == "" {
		id = uuid.NewString()
	} else {
		l, found, err := s.existing(ctx, id)
		if err != nil {
			return Log{}, err
		}
		if found {
			if l.Status != StatusQueued && l.Status != StatusFailed {
				s.logger.Info("message already dispatched", "message_id", l.ID, "status", l.Status)
				return l, nil
			}
			return s.dispatch(ctx, l)
		}
	}
	l, err := s.repo.Create(ctx, Log{
		ID:         id,
		Channel:    m.Channel,
		Recipients: m.Recipients,
		Subject:    strings.TrimSpace(m.Subject),
		Body:       m.Body,
		Status:     StatusQueued,
	})
	if err != nil {
		return Log{}, err
	}
	return s.dispatch(ctx, l)
}

func (s *Service) existing(ctx context.Context, id string) (Log, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Log{}, false, ErrInvalidID
	}
	l, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return Log{}, false, nil
	}
	return l, err == nil, err
}

// Resend dispatches a logged message again.
func (s *Service) Resend(ctx context.Context, id string) (Log, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Log{}, ErrNotFound
	}
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Log{}, err
	}
	return s.dispatch(ctx, l)
}

func (s *Service) Logs(ctx context.Context, f Filter) ([]Log, int, error) {
	return s.repo.List(ctx, f)
}

// ApplyDeliveryEvent updates the log row the event refers to. Unknown event
// types and provider ids are ignored.
func (s *Service) ApplyDeliveryEvent(ctx context.Context, ev DeliveryEvent) error {
	var status, errMsg string
	switch ev.Type {
	case EventEmailSent:
		status = StatusSent
	case EventEmailDelivered:
		status = StatusDelivered
	case EventEmailBounced:
		status = StatusBounced
		errMsg = "bounced"
		if ev.Data.Bounce != nil && ev.Data.Bounce.Message != "" {
			errMsg = ev.Data.Bounce.Message
		}
	case EventEmailDelayed:
		status = StatusSent
		errMsg = "delivery delayed"
	default:
		s.logger.Debug("ignoring delivery event", "type", ev.Type)
		return nil
	}

	n, err := s.repo.UpdateByProviderID(ctx, ev.Data.EmailID, status, errMsg)
	if err != nil {
		return err
	}
	if n == 0 {
		s.logger.Info("delivery event not applied", "type", ev.Type, "provider_id", ev.Data.EmailID)
	}
	return nil
}

func (s *Service) dispatch(ctx context.Context, l Log) (Log, error) {
	providerID, sendErr := s.providers[l.Channel].Send(ctx, l.message())

	status, errMsg := StatusSent, ""
	if sendErr != nil {
		status, errMsg = StatusFailed, sendErr.Error()
	}
	updated, err := s.repo.RecordAttempt(ctx, l.ID, status, providerID, errMsg)
	if err != nil {
		return l, err
	}
	if sendErr != nil {
		s.logger.Error("message dispatch failed", "message_id", l.ID, "channel", l.Channel, "error", sendErr)
		return updated, fmt.Errorf("%w: %v", ErrDispatch, sendErr)
	}
	return updated, nil
}

func check(m Message) error {
	if m.Channel != ChannelEmail && m.Channel != ChannelSMS {
		return ErrInvalidChannel
	}
	if len(m.Recipients) == 0 {
		return ErrNoRecipients
	}
	if len(m.Recipients) > MaxRecipients {
		return ErrTooManyRecipient
	}
	if strings.TrimSpace(m.Body) == "" {
		return ErrEmptyBody
	}
	return nil
}

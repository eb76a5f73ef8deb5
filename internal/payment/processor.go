// Package payment initializes charges with the payment processor and
// settles orders and booking deposits from its webhooks.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// Charge statuses reported by the processor.
const (
	ChargeSuccessful        = "successful"
	ChargeFailed            = "failed"
	ChargePending           = "pending"
	ChargeAwaitingAuthorize = "awaiting_authorize"
)

// EventChargeComplete is the only webhook event that settles a charge.
const EventChargeComplete = "charge.complete"

type ChargeRequest struct {
	Amount      int64
	Currency    string
	CardToken   string
	SourceType  string
	ReturnURI   string
	Description string
	Metadata    map[string]string
}

type Charge struct {
	ID             string
	Status         string
	AuthorizeURI   string
	Amount         int64
	Currency       string
	FailureCode    string
	FailureMessage string
	Metadata       map[string]string
}

type Event struct {
	ID     string
	Key    string
	Charge *Charge
}

// Processor is the payment gateway.
type Processor interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (Charge, error)
	// RetrieveEvent fetches an event by id from the gateway, which is how
	// webhook payloads are authenticated.
	RetrieveEvent(ctx context.Context, id string) (Event, error)
}

type OmiseProcessor struct {
	client *omise.Client
}

func NewOmiseProcessor(publicKey, secretKey string) (*OmiseProcessor, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return &OmiseProcessor{client: c}, nil
}

// CreateCharge charges a card token, or creates a source of SourceType and
// charges that when no token is given.
func (p *OmiseProcessor) CreateCharge(_ context.Context, req ChargeRequest) (Charge, error) {
	create := &operations.CreateCharge{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Card:        req.CardToken,
		Description: req.Description,
		ReturnURI:   req.ReturnURI,
		Metadata:    make(map[string]any, len(req.Metadata)),
	}
	for k, v := range req.Metadata {
		create.Metadata[k] = v
	}

	if req.CardToken == "" {
		src := &omise.Source{}
		err := p.client.Do(src, &operations.CreateSource{
			Type:     req.SourceType,
			Amount:   req.Amount,
			Currency: req.Currency,
		})
		if err != nil {
			return Charge{}, fmt.Errorf("create source: %w", err)
		}
		create.Source = src.ID
	}

	ch := &omise.Charge{}
	if err := p.client.Do(ch, create); err != nil {
		return Charge{}, fmt.Errorf("create charge: %w", err)
	}
	return fromOmise(ch), nil
}

func (p *OmiseProcessor) RetrieveEvent(_ context.Context, id string) (Event, error) {
	ev := &omise.Event{}
	if err := p.client.Do(ev, &operations.RetrieveEvent{EventID: id}); err != nil {
		return Event{}, err
	}
	out := Event{ID: ev.ID, Key: ev.Key}
	if ev.Key != EventChargeComplete {
		return out, nil
	}

	// ev.Data is decoded as a generic map; round-trip it into a charge.
	raw, err := json.Marshal(ev.Data)
	if err != nil {
		return Event{}, err
	}
	var ch omise.Charge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return Event{}, fmt.Errorf("decode charge: %w", err)
	}
	c := fromOmise(&ch)
	out.Charge = &c
	return out, nil
}

func fromOmise(ch *omise.Charge) Charge {
	out := Charge{
		ID:           ch.ID,
		Status:       string(ch.Status),
		AuthorizeURI: ch.AuthorizeURI,
		Amount:       ch.Amount,
		Currency:     ch.Currency,
		Metadata:     make(map[string]string, len(ch.Metadata)),
	}
	if ch.FailureCode != nil {
		out.FailureCode = *ch.FailureCode
	}
	if ch.FailureMessage != nil {
		out.FailureMessage = *ch.FailureMessage
	}
	for k, v := range ch.Metadata {
		out.Metadata[k] = fmt.Sprint(v)
	}
	return out
}

// ErrNotConfigured is returned by DisabledProcessor.
var ErrNotConfigured = errors.New("payments are not configured")

// DisabledProcessor stands in when no gateway keys are set.
type DisabledProcessor struct{}

func (DisabledProcessor) CreateCharge(context.Context, ChargeRequest) (Charge, error) {
	return Charge{}, ErrNotConfigured
}

func (DisabledProcessor) RetrieveEvent(context.Context, string) (Event, error) {
	return Event{}, ErrNotConfigured
}

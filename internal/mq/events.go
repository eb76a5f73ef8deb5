package mq

import (
	"encoding/json"
	"fmt"
)

// Routing keys published on the events exchange.
const (
	RKBookingCreated   = "booking.created"
	RKBookingConfirmed = "booking.confirmed"
	RKBookingCompleted = "booking.completed"
	RKBookingCancelled = "booking.cancelled"

	RKPaymentPaid   = "payment.paid"
	RKPaymentFailed = "payment.failed"
)

// BookingKey returns the routing key for a booking moving to status.
func BookingKey(status string) string {
	return "booking." + status
}

type BookingEvent struct {
	BookingID   int    `json:"booking_id"`
	Status      string `json:"status"`
	Service     string `json:"service"`
	Date        string `json:"date"`
	Slot        string `json:"slot"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone,omitempty"`
}

// PaymentEvent describes the outcome of a charge. Target is "order" or
// "booking" and TargetID the matching row id.
type PaymentEvent struct {
	Target         string `json:"target"`
	TargetID       int    `json:"target_id"`
	ChargeID       string `json:"charge_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Email          string `json:"email,omitempty"`
	FailureCode    string `json:"failure_code,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
}

// Decode unmarshals a delivery body into T.
func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}

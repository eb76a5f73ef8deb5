package booking

import "time"

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DateLayout is the wire and cache-key format of a booking date.
const DateLayout = "2006-01-02"

type Booking struct {
	ID           int       `json:"id"`
	ProfileID    string    `json:"profileId,omitempty"`
	ClientName   string    `json:"clientName"`
	ClientEmail  string    `json:"clientEmail"`
	ClientPhone  string    `json:"clientPhone"`
	Service      string    `json:"service"`
	Date         string    `json:"date"`
	Slot         string    `json:"slot"`
	Status       string    `json:"status"`
	DepositCents int64     `json:"depositCents"`
	PaymentRef   string    `json:"paymentRef,omitempty"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Slot is one opening on a given date.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

type Filter struct {
	Date      string
	Status    string
	ProfileID string
}

var transitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a booking in from may move to to.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func validStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

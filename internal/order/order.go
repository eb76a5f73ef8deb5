package order

import "time"

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Line is a product snapshot taken at checkout; later price changes do not
// affect placed orders.
type Line struct {
	ProductID      int    `json:"productId"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
}

// Order represents a purchase made by a profile.
type Order struct {
	ID            int       `json:"id"`
	ProfileID     string    `json:"profileId"`
	Items         []Line    `json:"items"`
	SubtotalCents int64     `json:"subtotalCents"`
	ShippingCents int64     `json:"shippingCents"`
	TotalCents    int64     `json:"totalCents"`
	Status        string    `json:"status"`
	PaymentRef    string    `json:"paymentRef,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

package product

import "time"

// Product is a sellable item. Prices are stored in the smallest currency unit.
type Product struct {
	ID          int       `json:"id"`
	CategoryID  *int      `json:"categoryId,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Stock       int       `json:"stock"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Filter narrows List. Zero values mean "no constraint".
type Filter struct {
	CategoryID int
	Query      string
	ActiveOnly bool
	Limit      int
	Offset     int
}

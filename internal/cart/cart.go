package cart

// Item is a cart line enriched with current product data.
type Item struct {
	ProductID      int    `json:"productId"`
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl,omitempty"`
	PriceCents     int64  `json:"priceCents"`
	Quantity       int    `json:"quantity"`
	LineTotalCents int64  `json:"lineTotalCents"`
	// Available is false when the product was removed or deactivated after
	// being added.
	Available bool `json:"available"`
}

type Cart struct {
	Items         []Item `json:"items"`
	SubtotalCents int64  `json:"subtotalCents"`
}

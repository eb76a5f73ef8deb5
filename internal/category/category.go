package category

// Category is a product grouping shown on the storefront.
type Category struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	ImageURL  string `json:"imageUrl,omitempty"`
	SortOrder int    `json:"sortOrder"`
}

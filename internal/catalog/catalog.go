// Package catalog models the product search API payload and the product
// records the UI renders from it.
package catalog

// MaxProducts caps how many products a single search renders.
const MaxProducts = 16

// SearchResponse is the body returned by the product search endpoint.
// Only the fields the monitor reads are decoded.
type SearchResponse struct {
	Products []RawProduct `json:"products"`
	Total    int          `json:"total"`
	Skip     int          `json:"skip"`
	Limit    int          `json:"limit"`
}

// RawProduct is a single product as the API reports it.
type RawProduct struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail"`
}

// Product is the display record for one search result.
// Products are read-only once mapped; a new search replaces the whole slice.
type Product struct {
	ID             int
	Title          string
	Price          float64
	PriceFormatted string
	Thumbnail      string
	Description    string
}

// MapProducts converts the raw payload into display records, keeping at most
// limit entries in source order. A non-positive limit means MaxProducts.
// The result is never nil.
func MapProducts(resp SearchResponse, limit int, currency string) []Product {
	if limit <= 0 {
		limit = MaxProducts
	}
	raw := resp.Products
	if len(raw) > limit {
		raw = raw[:limit]
	}

	products := make([]Product, 0, len(raw))
	for _, item := range raw {
		products = append(products, Product{
			ID:             item.ID,
			Title:          item.Title,
			Price:          item.Price,
			PriceFormatted: FormatPrice(item.Price, currency),
			Thumbnail:      item.Thumbnail,
			Description:    item.Description,
		})
	}
	return products
}

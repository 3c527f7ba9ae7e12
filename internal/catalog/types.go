// Package catalog is the write side: repositories over the products schema
// and the orchestrator that couples every mutation with its inbox event.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── write DTOs ────────────────────────────────────────────────────────────

// ProductWrite carries a full product for create and update. Prices and
// quantity arrive as JSON strings or numbers; shopspring decodes both.
type ProductWrite struct {
	SKU           string          `json:"sku"`
	NameEN        string          `json:"name_en"`
	NamePL        string          `json:"name_pl"`
	ImageURL      string          `json:"image_url"`
	DescriptionEN string          `json:"description_en"`
	DescriptionPL string          `json:"description_pl"`
	BasePriceUSD  decimal.Decimal `json:"base_price_usd"`
	BasePricePLN  decimal.Decimal `json:"base_price_pln"`
	Discount      *int            `json:"discount"`
	Quantity      decimal.Decimal `json:"quantity"`
	Weight        int             `json:"weight"`
	ColorEN       string          `json:"color_en"`
	ColorPL       string          `json:"color_pl"`
	Tags          []string        `json:"tags"`
	Category      string          `json:"category"`
	Brand         string          `json:"brand"`
}

// CategoryWrite carries a category for create and update.
type CategoryWrite struct {
	NameEN string `json:"name_en"`
	NamePL string `json:"name_pl"`
}

// BrandWrite carries a brand for create and update.
type BrandWrite struct {
	Name    string `json:"name"`
	LogoURL string `json:"logo_url"`
}

// TagWrite carries a tag for create.
type TagWrite struct {
	EN string `json:"en"`
	PL string `json:"pl"`
}

// ── read DTOs ─────────────────────────────────────────────────────────────

// Monetary amounts leave the service as fixed two-decimal strings.

// TagDetail is a tag as returned to clients.
type TagDetail struct {
	GUID      string    `json:"guid"`
	EN        string    `json:"en"`
	PL        string    `json:"pl"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryDetail is a category as returned to clients.
type CategoryDetail struct {
	GUID      string    `json:"guid"`
	NameEN    string    `json:"name_en"`
	NamePL    string    `json:"name_pl"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BrandDetail is a brand as returned to clients.
type BrandDetail struct {
	GUID      string    `json:"guid"`
	Name      string    `json:"name"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductDetail is the full product view with resolved references.
type ProductDetail struct {
	GUID               string         `json:"guid"`
	SKU                string         `json:"sku"`
	NameEN             string         `json:"name_en"`
	NamePL             string         `json:"name_pl"`
	ImageURL           string         `json:"image_url,omitempty"`
	DescriptionEN      string         `json:"description_en"`
	DescriptionPL      string         `json:"description_pl"`
	BasePriceUSD       string         `json:"base_price_usd"`
	BasePricePLN       string         `json:"base_price_pln"`
	DiscountedPriceUSD string         `json:"discounted_price_usd"`
	DiscountedPricePLN string         `json:"discounted_price_pln"`
	Discount           *int           `json:"discount,omitempty"`
	Quantity           string         `json:"quantity"`
	Weight             int            `json:"weight"`
	ColorEN            string         `json:"color_en"`
	ColorPL            string         `json:"color_pl"`
	Tags               []TagDetail    `json:"tags"`
	Category           CategoryDetail `json:"category"`
	Brand              BrandDetail    `json:"brand"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// PageMeta is shared by all paginated list responses.
type PageMeta struct {
	PageNumber int `json:"page_number"`
	PagesCount int `json:"pages_count"`
	Total      int `json:"total"`
}

// ProductPage is one page of product details.
type ProductPage struct {
	PageMeta
	Items []ProductDetail `json:"items"`
}

// CategoryPage is one page of categories.
type CategoryPage struct {
	PageMeta
	Items []CategoryDetail `json:"items"`
}

// BrandPage is one page of brands.
type BrandPage struct {
	PageMeta
	Items []BrandDetail `json:"items"`
}

// TagPage is one page of tags.
type TagPage struct {
	PageMeta
	Items []TagDetail `json:"items"`
}

func pagesCount(total, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

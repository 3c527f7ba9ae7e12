// Package search owns the read side: the Redis JSON document store the
// projection worker writes into, the RediSearch index over it, and the
// query service behind the public offer endpoint.
package search

import "time"

// KeyPrefix is prepended to product guids to form document keys.
const KeyPrefix = "product:"

// IndexName is the RediSearch index over KeyPrefix documents.
const IndexName = "idx:products"

// ProductDocument is the denormalized product view served to shoppers.
// Related entities (tags, category, brand) are snapshotted at write time,
// so the document never needs a relational join to render.
//
// Prices are JSON numbers so the numeric index fields work; they are
// formatted as strings only at the HTTP boundary.
type ProductDocument struct {
	GUID           string    `json:"guid"`
	SKU            string    `json:"sku"`
	NameEN         string    `json:"name_en"`
	NamePL         string    `json:"name_pl"`
	ImageURL       string    `json:"image_url,omitempty"`
	DescriptionEN  string    `json:"description_en"`
	DescriptionPL  string    `json:"description_pl"`
	BasePriceUSD   float64   `json:"base_price_usd"`
	BasePricePLN   float64   `json:"base_price_pln"`
	DiscountedUSD  float64   `json:"discounted_price_usd"`
	DiscountedPLN  float64   `json:"discounted_price_pln"`
	Discount       int       `json:"discount,omitempty"`
	Quantity       float64   `json:"quantity"`
	Weight         int       `json:"weight"`
	ColorEN        string    `json:"color_en"`
	ColorPL        string    `json:"color_pl"`
	TagsEN         []string  `json:"tags_en"`
	TagsPL         []string  `json:"tags_pl"`
	CategoryNameEN string    `json:"category_name_en"`
	CategoryNamePL string    `json:"category_name_pl"`
	BrandName      string    `json:"brand_name"`
	BrandLogoURL   string    `json:"brand_logo_url,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Key renders the document-store key for a product guid.
func Key(guid string) string {
	return KeyPrefix + guid
}

package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func intPtr(v int) *int { return &v }

func TestDiscountedPrice(t *testing.T) {
	cases := []struct {
		name     string
		base     string
		discount *int
		want     string
	}{
		{"no discount returns base", "48.00", nil, "48.00"},
		{"64 percent off 48.00", "48.00", intPtr(64), "17.28"},
		{"half-to-even rounds down", "10.05", intPtr(50), "5.02"},
		{"half-to-even rounds up", "10.15", intPtr(50), "5.08"},
		{"one percent off", "100.00", intPtr(1), "99.00"},
		{"ninety-nine percent off", "100.00", intPtr(99), "1.00"},
		{"zero base", "0.00", intPtr(50), "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := discountedPrice(dec(t, tc.base), tc.discount)
			assert.Equal(t, tc.want, got.StringFixed(2))
		})
	}
}

func TestBuildDocument_SnapshotsReferences(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	logo := "https://cdn.example.com/farmary.png"
	image := "https://cdn.example.com/cabbage.jpg"

	product := &ProductRow{
		GUID:          "018f6f00-0000-7000-8000-000000000002",
		SKU:           "2,51,594",
		NameEN:        "Chinese Cabbage",
		NamePL:        "Kapusta Chińska",
		ImageURL:      &image,
		DescriptionEN: "Fresh cabbage",
		DescriptionPL: "Świeża kapusta",
		BasePriceUSD:  dec(t, "48.00"),
		BasePricePLN:  dec(t, "194.43"),
		Discount:      intPtr(64),
		Quantity:      dec(t, "5413"),
		Weight:        3,
		ColorEN:       "Green",
		ColorPL:       "Zielony",
		UpdatedAt:     now,
	}
	tags := []TagRow{{GUID: "t1", EN: "Vegetables", PL: "Warzywa"}}
	category := &CategoryRow{NameEN: "Vegetables", NamePL: "Warzywa"}
	brand := &BrandRow{Name: "Farmary", LogoURL: &logo}

	doc := buildDocument(product, tags, category, brand)

	assert.Equal(t, product.GUID, doc.GUID)
	assert.Equal(t, []string{"Vegetables"}, doc.TagsEN)
	assert.Equal(t, []string{"Warzywa"}, doc.TagsPL)
	assert.Equal(t, "Vegetables", doc.CategoryNameEN)
	assert.Equal(t, "Farmary", doc.BrandName)
	assert.Equal(t, logo, doc.BrandLogoURL)
	assert.Equal(t, image, doc.ImageURL)
	assert.InDelta(t, 48.00, doc.BasePriceUSD, 0.001)
	assert.InDelta(t, 17.28, doc.DiscountedUSD, 0.001)
	assert.InDelta(t, 69.99, doc.DiscountedPLN, 0.011) // 194.43 * 0.36 = 69.9948 → 69.99
	assert.Equal(t, now, doc.UpdatedAt)
	assert.Equal(t, 64, doc.Discount)
}

func TestBuildDocument_NoDiscountEqualsBase(t *testing.T) {
	product := &ProductRow{
		BasePriceUSD: dec(t, "12.34"),
		BasePricePLN: dec(t, "50.00"),
		Quantity:     dec(t, "1"),
	}
	doc := buildDocument(product, nil, &CategoryRow{}, &BrandRow{})
	assert.Equal(t, doc.BasePriceUSD, doc.DiscountedUSD)
	assert.Equal(t, doc.BasePricePLN, doc.DiscountedPLN)
	assert.Zero(t, doc.Discount)
}

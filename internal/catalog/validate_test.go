package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductWrite(t *testing.T) ProductWrite {
	t.Helper()
	return ProductWrite{
		SKU:           "2,51,594",
		NameEN:        "Chinese Cabbage",
		NamePL:        "Kapusta Chińska",
		DescriptionEN: "Fresh cabbage",
		DescriptionPL: "Świeża kapusta",
		BasePriceUSD:  dec(t, "48.00"),
		BasePricePLN:  dec(t, "194.43"),
		Discount:      intPtr(64),
		Quantity:      dec(t, "5413"),
		Weight:        3,
		ColorEN:       "Green",
		ColorPL:       "Zielony",
		Tags:          []string{"018f6f00-0000-7000-8000-000000000010"},
		Category:      "018f6f00-0000-7000-8000-000000000011",
		Brand:         "018f6f00-0000-7000-8000-000000000012",
	}
}

func TestValidateProduct_Valid(t *testing.T) {
	in := validProductWrite(t)
	require.NoError(t, validateProduct(&in))
}

func TestValidateProduct_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ProductWrite)
		detail string
	}{
		{"empty sku", func(p *ProductWrite) { p.SKU = "" }, "sku"},
		{"sku too long", func(p *ProductWrite) { p.SKU = strings.Repeat("x", 17) }, "sku"},
		{"empty name_en", func(p *ProductWrite) { p.NameEN = "" }, "name_en"},
		{"name_pl too long", func(p *ProductWrite) { p.NamePL = strings.Repeat("x", 65) }, "name_pl"},
		{"description too long", func(p *ProductWrite) { p.DescriptionEN = strings.Repeat("x", 4097) }, "description_en"},
		{"negative price", func(p *ProductWrite) { p.BasePriceUSD = dec(t, "-1.00") }, "base_price_usd"},
		{"too many fractional digits", func(p *ProductWrite) { p.BasePricePLN = dec(t, "9.999") }, "base_price_pln"},
		{"discount zero", func(p *ProductWrite) { p.Discount = intPtr(0) }, "discount"},
		{"discount hundred", func(p *ProductWrite) { p.Discount = intPtr(100) }, "discount"},
		{"quantity below one", func(p *ProductWrite) { p.Quantity = dec(t, "0.5") }, "quantity"},
		{"zero weight", func(p *ProductWrite) { p.Weight = 0 }, "weight"},
		{"empty color", func(p *ProductWrite) { p.ColorEN = "" }, "color_en"},
		{"bad category guid", func(p *ProductWrite) { p.Category = "nope" }, "category"},
		{"bad brand guid", func(p *ProductWrite) { p.Brand = "nope" }, "brand"},
		{"bad tag guid", func(p *ProductWrite) { p.Tags = []string{"nope"} }, "tags"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validProductWrite(t)
			tc.mutate(&in)
			err := validateProduct(&in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tc.detail)
		})
	}
}

func TestValidateTag(t *testing.T) {
	require.NoError(t, validateTag(&TagWrite{EN: "Vegetables", PL: "Warzywa"}))

	err := validateTag(&TagWrite{EN: "", PL: "Warzywa"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = validateTag(&TagWrite{EN: strings.Repeat("x", 17), PL: "Warzywa"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateBrand(t *testing.T) {
	require.NoError(t, validateBrand(&BrandWrite{Name: "Farmary"}))

	err := validateBrand(&BrandWrite{Name: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = validateBrand(&BrandWrite{Name: "Farmary", LogoURL: strings.Repeat("x", 257)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateCategory(t *testing.T) {
	require.NoError(t, validateCategory(&CategoryWrite{NameEN: "Vegetables", NamePL: "Warzywa"}))

	err := validateCategory(&CategoryWrite{NameEN: "Vegetables", NamePL: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildQuery(t *testing.T) {
	cases := []struct {
		name   string
		filter Filter
		want   string
	}{
		{"empty filter matches all", Filter{}, "*"},
		{"blank text matches all", Filter{Text: "   "}, "*"},
		{
			"text query",
			Filter{Text: "cabbage"},
			"@name_en|name_pl|description_en|description_pl:(cabbage)",
		},
		{
			"category in either language",
			Filter{Category: "Vegetables"},
			`(@category_name_en:{Vegetables} | @category_name_pl:{Vegetables})`,
		},
		{
			"brand",
			Filter{Brand: "Farmary"},
			`@brand_name:{Farmary}`,
		},
		{
			"tag in either language",
			Filter{Tag: "Warzywa"},
			`(@tags_en:{Warzywa} | @tags_pl:{Warzywa})`,
		},
		{
			"price range",
			Filter{PriceMin: floatPtr(10), PriceMax: floatPtr(50)},
			"@discounted_price_usd:[10 50]",
		},
		{
			"open-ended price range",
			Filter{PriceMax: floatPtr(25.5)},
			"@discounted_price_usd:[-inf 25.5]",
		},
		{
			"combined clauses",
			Filter{Text: "cabbage", Brand: "Farmary"},
			`@name_en|name_pl|description_en|description_pl:(cabbage) @brand_name:{Farmary}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, buildQuery(tc.filter))
		})
	}
}

func TestEscapeTag(t *testing.T) {
	assert.Equal(t, `Fresh\ Produce`, escapeTag("Fresh Produce"))
	assert.Equal(t, `a\-b`, escapeTag("a-b"))
	assert.Equal(t, "Warzywa", escapeTag("Warzywa"))
}

func TestEscapeText_StripsQuerySyntax(t *testing.T) {
	assert.Equal(t, "cabbage", escapeText("cabbage"))
	assert.Equal(t, "cabbage   fresh", escapeText(`cabbage @{fresh}`))
	assert.NotContains(t, escapeText(`a|b"c`), `"`)
}

func TestPagesCount(t *testing.T) {
	cases := []struct {
		total, pageSize, want int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 100, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, pagesCount(tc.total, tc.pageSize))
	}
}

package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"

	"github.com/mzsawicki/shopery-backend/internal/search"
)

// ProductUpdatedPayload is the PRODUCT_UPDATED inbox payload: the complete
// projected document snapshotted at commit time, so the projector never has
// to re-dereference relational ids that later writes could have mutated.
// Trace fields let the worker link its async span back to the request.
type ProductUpdatedPayload struct {
	search.ProductDocument
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// ProductRemovedPayload is the PRODUCT_REMOVED inbox payload. UpdatedAt is
// the removal time; the projector compares it against the live document so
// a removal never clobbers a newer update.
type ProductRemovedPayload struct {
	GUID      string    `json:"guid"`
	UpdatedAt time.Time `json:"updated_at"`
	TraceID   string    `json:"trace_id,omitempty"`
	SpanID    string    `json:"span_id,omitempty"`
}

// ReferencePayload is the minimal body of the reserved category and tag
// events. No consumer exists for these yet; they are recorded for a future
// projection that refreshes embedded snapshots.
type ReferencePayload struct {
	GUID      string    `json:"guid"`
	UpdatedAt time.Time `json:"updated_at"`
}

var hundred = decimal.NewFromInt(100)

// discountedPrice applies an integer percent discount to a base price,
// rounding half-to-even to two fractional digits. A nil discount leaves the
// base untouched.
func discountedPrice(base decimal.Decimal, discount *int) decimal.Decimal {
	if discount == nil {
		return base.RoundBank(2)
	}
	factor := decimal.NewFromInt(int64(100 - *discount))
	return base.Mul(factor).Div(hundred).RoundBank(2)
}

// buildDocument assembles the projected document from the product row and
// its resolved references. Prices become floats here, at the edge of the
// decimal domain, because the search index needs numeric fields.
func buildDocument(p *ProductRow, tags []TagRow, category *CategoryRow, brand *BrandRow) search.ProductDocument {
	tagsEN := make([]string, len(tags))
	tagsPL := make([]string, len(tags))
	for i, t := range tags {
		tagsEN[i] = t.EN
		tagsPL[i] = t.PL
	}

	doc := search.ProductDocument{
		GUID:           p.GUID,
		SKU:            p.SKU,
		NameEN:         p.NameEN,
		NamePL:         p.NamePL,
		DescriptionEN:  p.DescriptionEN,
		DescriptionPL:  p.DescriptionPL,
		BasePriceUSD:   p.BasePriceUSD.InexactFloat64(),
		BasePricePLN:   p.BasePricePLN.InexactFloat64(),
		DiscountedUSD:  discountedPrice(p.BasePriceUSD, p.Discount).InexactFloat64(),
		DiscountedPLN:  discountedPrice(p.BasePricePLN, p.Discount).InexactFloat64(),
		Quantity:       p.Quantity.InexactFloat64(),
		Weight:         p.Weight,
		ColorEN:        p.ColorEN,
		ColorPL:        p.ColorPL,
		TagsEN:         tagsEN,
		TagsPL:         tagsPL,
		CategoryNameEN: category.NameEN,
		CategoryNamePL: category.NamePL,
		BrandName:      brand.Name,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ImageURL != nil {
		doc.ImageURL = *p.ImageURL
	}
	if p.Discount != nil {
		doc.Discount = *p.Discount
	}
	if brand.LogoURL != nil {
		doc.BrandLogoURL = *brand.LogoURL
	}
	return doc
}

// traceIDs extracts the current span's identifiers for payload embedding.
func traceIDs(ctx context.Context) (traceID, spanID string) {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return "", ""
	}
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

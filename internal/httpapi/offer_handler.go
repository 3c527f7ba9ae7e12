package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mzsawicki/shopery-backend/internal/search"
)

// offerItem is one search hit with monetary fields re-rendered as fixed
// two-decimal strings, matching the write-side detail DTOs.
type offerItem struct {
	GUID               string    `json:"guid"`
	SKU                string    `json:"sku"`
	NameEN             string    `json:"name_en"`
	NamePL             string    `json:"name_pl"`
	ImageURL           string    `json:"image_url,omitempty"`
	DescriptionEN      string    `json:"description_en"`
	DescriptionPL      string    `json:"description_pl"`
	BasePriceUSD       string    `json:"base_price_usd"`
	BasePricePLN       string    `json:"base_price_pln"`
	DiscountedPriceUSD string    `json:"discounted_price_usd"`
	DiscountedPricePLN string    `json:"discounted_price_pln"`
	Discount           int       `json:"discount,omitempty"`
	Quantity           float64   `json:"quantity"`
	Weight             int       `json:"weight"`
	ColorEN            string    `json:"color_en"`
	ColorPL            string    `json:"color_pl"`
	TagsEN             []string  `json:"tags_en"`
	TagsPL             []string  `json:"tags_pl"`
	CategoryNameEN     string    `json:"category_name_en"`
	CategoryNamePL     string    `json:"category_name_pl"`
	BrandName          string    `json:"brand_name"`
	BrandLogoURL       string    `json:"brand_logo_url,omitempty"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type offerResponse struct {
	PageNumber int         `json:"page_number"`
	PagesCount int         `json:"pages_count"`
	Total      int         `json:"total"`
	Items      []offerItem `json:"items"`
}

// Offer serves the read-side product search.
//
// Query parameters: page_number, page_size, text, category, brand, tag,
// price_min, price_max.
func (h *Handler) Offer(c echo.Context) error {
	pageNumber, pageSize := pageParams(c)

	filter := search.Filter{
		Text:     c.QueryParam("text"),
		Category: c.QueryParam("category"),
		Brand:    c.QueryParam("brand"),
		Tag:      c.QueryParam("tag"),
	}
	if raw := c.QueryParam("price_min"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "price_min must be a number"})
		}
		filter.PriceMin = &v
	}
	if raw := c.QueryParam("price_max"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"detail": "price_max must be a number"})
		}
		filter.PriceMax = &v
	}

	page, err := h.search.Search(c.Request().Context(), pageNumber, pageSize, filter)
	if err != nil {
		return h.errResp(c, err)
	}

	resp := offerResponse{
		PageNumber: page.PageNumber,
		PagesCount: page.PagesCount,
		Total:      page.Total,
		Items:      make([]offerItem, len(page.Items)),
	}
	for i, doc := range page.Items {
		resp.Items[i] = offerItemFromDocument(&doc)
	}
	return c.JSON(http.StatusOK, resp)
}

func offerItemFromDocument(doc *search.ProductDocument) offerItem {
	return offerItem{
		GUID:               doc.GUID,
		SKU:                doc.SKU,
		NameEN:             doc.NameEN,
		NamePL:             doc.NamePL,
		ImageURL:           doc.ImageURL,
		DescriptionEN:      doc.DescriptionEN,
		DescriptionPL:      doc.DescriptionPL,
		BasePriceUSD:       money(doc.BasePriceUSD),
		BasePricePLN:       money(doc.BasePricePLN),
		DiscountedPriceUSD: money(doc.DiscountedUSD),
		DiscountedPricePLN: money(doc.DiscountedPLN),
		Discount:           doc.Discount,
		Quantity:           doc.Quantity,
		Weight:             doc.Weight,
		ColorEN:            doc.ColorEN,
		ColorPL:            doc.ColorPL,
		TagsEN:             doc.TagsEN,
		TagsPL:             doc.TagsPL,
		CategoryNameEN:     doc.CategoryNameEN,
		CategoryNamePL:     doc.CategoryNamePL,
		BrandName:          doc.BrandName,
		BrandLogoURL:       doc.BrandLogoURL,
		UpdatedAt:          doc.UpdatedAt,
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Package httpapi mounts the catalog and offer endpoints on Echo and maps
// domain errors to HTTP statuses.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/mzsawicki/shopery-backend/internal/catalog"
	"github.com/mzsawicki/shopery-backend/internal/search"
)

// Searcher is the offer read path.
type Searcher interface {
	Search(ctx context.Context, pageNumber, pageSize int, filter search.Filter) (*search.Page, error)
}

// Handler serves the catalog write surface and the offer read surface.
type Handler struct {
	catalog catalog.Service
	search  Searcher
	logger  *zap.Logger
}

// New constructs a Handler.
func New(c catalog.Service, s Searcher, l *zap.Logger) *Handler {
	return &Handler{catalog: c, search: s, logger: l}
}

// Register mounts all routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/products", h.ListProducts)
	e.POST("/products", h.AddProduct)
	e.GET("/products/:guid", h.GetProduct)
	e.PUT("/products/:guid", h.UpdateProduct)
	e.DELETE("/products/:guid", h.RemoveProduct)

	e.GET("/categories", h.ListCategories)
	e.POST("/categories", h.AddCategory)
	e.GET("/categories/:guid", h.GetCategory)
	e.PUT("/categories/:guid", h.UpdateCategory)
	e.DELETE("/categories/:guid", h.RemoveCategory)

	e.GET("/brands", h.ListBrands)
	e.POST("/brands", h.AddBrand)
	e.GET("/brands/:guid", h.GetBrand)
	e.PUT("/brands/:guid", h.UpdateBrand)
	e.DELETE("/brands/:guid", h.RemoveBrand)

	e.GET("/tags", h.ListTags)
	e.POST("/tags", h.AddTag)
	e.DELETE("/tags/:guid", h.RemoveTag)

	e.POST("/product-images", h.UploadProductImage)
	e.POST("/brand-logos", h.UploadBrandLogo)

	e.GET("/offer", h.Offer)
}

// errResp maps a domain error to its status and {detail} body.
func (h *Handler) errResp(c echo.Context, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"detail": err.Error()})
	case errors.Is(err, catalog.ErrInvalidInput),
		errors.Is(err, catalog.ErrAlreadyExists),
		errors.Is(err, catalog.ErrReferenceNotFound),
		errors.Is(err, catalog.ErrInUse),
		errors.Is(err, catalog.ErrFileFormat),
		errors.Is(err, catalog.ErrFileTooLarge):
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": err.Error()})
	case errors.Is(err, catalog.ErrStorageUnavailable):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"detail": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": "internal error"})
	}
}

// pageParams reads page_number / page_size query parameters. Malformed
// values fall back to defaults; the services clamp the ranges.
func pageParams(c echo.Context) (int, int) {
	pageNumber, _ := strconv.Atoi(c.QueryParam("page_number"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	return pageNumber, pageSize
}

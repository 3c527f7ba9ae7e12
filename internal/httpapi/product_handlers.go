package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mzsawicki/shopery-backend/internal/catalog"
)

func (h *Handler) AddProduct(c echo.Context) error {
	var req catalog.ProductWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.AddProduct(c.Request().Context(), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) UpdateProduct(c echo.Context) error {
	var req catalog.ProductWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.UpdateProduct(c.Request().Context(), c.Param("guid"), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) RemoveProduct(c echo.Context) error {
	if err := h.catalog.RemoveProduct(c.Request().Context(), c.Param("guid")); err != nil {
		return h.errResp(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetProduct(c echo.Context) error {
	detail, err := h.catalog.GetProduct(c.Request().Context(), c.Param("guid"))
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListProducts(c echo.Context) error {
	pageNumber, pageSize := pageParams(c)
	page, err := h.catalog.ListProducts(c.Request().Context(), pageNumber, pageSize)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

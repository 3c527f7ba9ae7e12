package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mzsawicki/shopery-backend/internal/catalog"
)

// ── categories ────────────────────────────────────────────────────────────

func (h *Handler) AddCategory(c echo.Context) error {
	var req catalog.CategoryWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.AddCategory(c.Request().Context(), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) UpdateCategory(c echo.Context) error {
	var req catalog.CategoryWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.UpdateCategory(c.Request().Context(), c.Param("guid"), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) RemoveCategory(c echo.Context) error {
	if err := h.catalog.RemoveCategory(c.Request().Context(), c.Param("guid")); err != nil {
		return h.errResp(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetCategory(c echo.Context) error {
	detail, err := h.catalog.GetCategory(c.Request().Context(), c.Param("guid"))
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListCategories(c echo.Context) error {
	pageNumber, pageSize := pageParams(c)
	page, err := h.catalog.ListCategories(c.Request().Context(), pageNumber, pageSize)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// ── brands ────────────────────────────────────────────────────────────────

func (h *Handler) AddBrand(c echo.Context) error {
	var req catalog.BrandWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.AddBrand(c.Request().Context(), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) UpdateBrand(c echo.Context) error {
	var req catalog.BrandWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.UpdateBrand(c.Request().Context(), c.Param("guid"), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) RemoveBrand(c echo.Context) error {
	if err := h.catalog.RemoveBrand(c.Request().Context(), c.Param("guid")); err != nil {
		return h.errResp(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetBrand(c echo.Context) error {
	detail, err := h.catalog.GetBrand(c.Request().Context(), c.Param("guid"))
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListBrands(c echo.Context) error {
	pageNumber, pageSize := pageParams(c)
	page, err := h.catalog.ListBrands(c.Request().Context(), pageNumber, pageSize)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// ── tags ──────────────────────────────────────────────────────────────────

func (h *Handler) AddTag(c echo.Context) error {
	var req catalog.TagWrite
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
	}
	detail, err := h.catalog.AddTag(c.Request().Context(), req)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) RemoveTag(c echo.Context) error {
	if err := h.catalog.RemoveTag(c.Request().Context(), c.Param("guid")); err != nil {
		return h.errResp(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListTags(c echo.Context) error {
	pageNumber, pageSize := pageParams(c)
	page, err := h.catalog.ListTags(c.Request().Context(), pageNumber, pageSize)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

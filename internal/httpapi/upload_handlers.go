package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// UploadProductImage accepts a multipart file under the "file" field and
// returns the public URL of the stored image.
func (h *Handler) UploadProductImage(c echo.Context) error {
	return h.handleUpload(c, h.catalog.UploadProductImage)
}

// UploadBrandLogo accepts a multipart file under the "file" field.
func (h *Handler) UploadBrandLogo(c echo.Context) error {
	return h.handleUpload(c, h.catalog.UploadBrandLogo)
}

type uploadFn func(ctx context.Context, filename string, size int64, r io.Reader) (string, error)

func (h *Handler) handleUpload(c echo.Context, upload uploadFn) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "file field is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"detail": "could not read uploaded file"})
	}
	defer file.Close()

	url, err := upload(c.Request().Context(), fileHeader.Filename, fileHeader.Size, file)
	if err != nil {
		return h.errResp(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]string{"file_url": url})
}
